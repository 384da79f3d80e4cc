package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/otaviosalomao/FundValidation/internal/cache"
	"github.com/otaviosalomao/FundValidation/internal/calculator"
	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/model"
)

type cacheCmd struct {
	source string
	id     int64
	period int
	date   string
}

func (*cacheCmd) Name() string     { return "cache" }
func (*cacheCmd) Synopsis() string { return "inspect or clear the response cache" }
func (*cacheCmd) Usage() string {
	return `fundvalidation cache info|clear|clear-expired
fundvalidation cache -source api|db -id <instrument> -period <id> [-date YYYY-MM-DD] invalidate

  info, clear and clear-expired need the file backend. invalidate drops one
  entry; for -source db the window is derived from -date (default today).
`
}

func (c *cacheCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "api", "entry source for invalidate: api or db")
	f.Int64Var(&c.id, "id", 0, "instrument id for invalidate")
	f.IntVar(&c.period, "period", 0, "period id for invalidate")
	f.StringVar(&c.date, "date", "", "reference date of a db entry")
}

func (c *cacheCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	a, err := newApp((*config.Config).ValidateCache)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	s, err := a.cacheStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if err := c.do(ctx, f.Arg(0), s); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *cacheCmd) do(ctx context.Context, action string, s cache.Store) error {
	if action == "invalidate" {
		key, err := c.key()
		if err != nil {
			return err
		}
		if fs, ok := s.(*cache.FileStore); ok {
			found, err := fs.Invalidate(key)
			if err != nil {
				return fmt.Errorf("invalidate %s: %w", key, err)
			}
			if !found {
				fmt.Println("no entry for", key)
				return nil
			}
		} else if err := s.Delete(ctx, key); err != nil {
			return fmt.Errorf("invalidate %s: %w", key, err)
		}
		fmt.Println("invalidated", key)
		return nil
	}

	fs, ok := s.(*cache.FileStore)
	if !ok {
		return fmt.Errorf("cache %s requires the file backend", action)
	}
	switch action {
	case "info":
		info, err := fs.Info()
		if err != nil {
			return err
		}
		fmt.Printf("dir:      %s\nfiles:    %d\nvalid:    %d\nexpired:  %d\nsize:     %.2f MB\n",
			info.Dir, info.TotalFiles, info.ValidFiles, info.ExpiredFiles, float64(info.TotalSizeBytes)/(1024*1024))
	case "clear":
		n, err := fs.Clear()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d entries\n", n)
	case "clear-expired":
		n, err := fs.ClearExpired()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d expired entries\n", n)
	default:
		return fmt.Errorf("unknown cache action %q", action)
	}
	return nil
}

func (c *cacheCmd) key() (string, error) {
	period := model.PeriodID(c.period)
	if c.id <= 0 || !period.Valid() {
		return "", fmt.Errorf("invalidate needs -id and a valid -period")
	}
	switch c.source {
	case "api":
		return cache.FeedKey(c.id, period), nil
	case "db":
		ref := time.Now()
		if c.date != "" {
			d, err := calculator.ParseDate(c.date)
			if err != nil {
				return "", fmt.Errorf("parse -date: %w", err)
			}
			ref = d
		}
		window, err := period.Window(ref)
		if err != nil {
			return "", err
		}
		return cache.QuotasKey(c.id, period, window), nil
	default:
		return "", fmt.Errorf("-source must be api or db, got %q", c.source)
	}
}
