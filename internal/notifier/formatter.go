package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/otaviosalomao/FundValidation/internal/model"
	"github.com/otaviosalomao/FundValidation/internal/recorder"
)

// FormatRunSummary formats a finished run into a Telegram message.
func FormatRunSummary(run *recorder.RunRecord) string {
	var b strings.Builder

	icon := "✅"
	switch {
	case run.Outcome == "failed":
		icon = "❌"
	case run.Outcome == "no_data":
		icon = "⚪"
	case run.Errors > 0:
		icon = "⚠️"
	}
	b.WriteString(fmt.Sprintf("%s <b>Fund validation</b> | %s\n\n", icon, run.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Outcome: %s\n", run.Outcome))
	b.WriteString(fmt.Sprintf("Run: <code>%s</code>\n", run.ID))
	b.WriteString(fmt.Sprintf("Elapsed: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second)))

	if run.Error != "" {
		b.WriteString(fmt.Sprintf("\nError: %s\n", htmlEscape(run.Error)))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("\nFeed records: %d\n", run.FeedRecords))
	if run.Outcome == "feed_only" {
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Bank records: %d\n", run.BankRecords))
	if run.SkippedRecords > 0 {
		b.WriteString(fmt.Sprintf("Skipped (data errors): %d\n", run.SkippedRecords))
	}
	if run.MissingAnchors > 0 {
		b.WriteString(fmt.Sprintf("Series without anchor: %d\n", run.MissingAnchors))
	}
	if run.Total == 0 {
		return b.String()
	}

	b.WriteString("\n📈 <b>Reconciliation:</b>\n")
	b.WriteString(fmt.Sprintf("  OK: %d | ERROR: %d | total: %d (%.1f%%)\n",
		run.OK, run.Errors, run.Total, float64(run.OK)/float64(run.Total)*100))
	for _, k := range model.MatchKinds {
		if n := run.ByKind[k]; n > 0 {
			b.WriteString(fmt.Sprintf("  %s: %d\n", k, n))
		}
	}
	if run.ReportPath != "" {
		b.WriteString(fmt.Sprintf("\nReport: %s\n", run.ReportPath))
	}
	return b.String()
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	return "Available commands:\n• /run  run a full validation\n• /feed  refresh the feed snapshot only\n• /status  last run summary\n• /help  this message"
}

func htmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
