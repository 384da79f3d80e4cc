// Package tabular reads and writes the feed, bank and report snapshots as
// CSV files with a header row.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// Summary describes an exported snapshot.
type Summary struct {
	Records     int
	Instruments int
	Periods     int
}

func summarize[T interface{ Key() model.GroupKey }](rows []T) Summary {
	instruments := make(map[int64]struct{})
	periods := make(map[model.PeriodID]struct{})
	for _, r := range rows {
		k := r.Key()
		instruments[k.InstrumentID] = struct{}{}
		periods[k.PeriodID] = struct{}{}
	}
	return Summary{Records: len(rows), Instruments: len(instruments), Periods: len(periods)}
}

func writeFile(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// table resolves columns by header name.
type table struct {
	path string
	idx  map[string]int
	rows [][]string
}

func readFile(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &table{path: path, idx: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	t := &table{path: path, idx: make(map[string]int, len(header))}
	for i, name := range header {
		t.idx[name] = i
	}
	for _, name := range required {
		if _, ok := t.idx[name]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, name)
		}
	}

	t.rows, err = r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

func (t *table) get(row []string, name string) string {
	i, ok := t.idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// rowParser accumulates the first parse failure of a row.
type rowParser struct {
	t   *table
	row []string
	err error
}

func (p *rowParser) str(name string) string { return p.t.get(p.row, name) }

func (p *rowParser) integer(name string) int64 {
	v, err := strconv.ParseInt(p.str(name), 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", name, err)
	}
	return v
}

func (p *rowParser) period(name string) model.PeriodID {
	return model.PeriodID(p.integer(name))
}

// dec parses a required decimal column.
func (p *rowParser) dec(name string) decimal.Decimal {
	d, err := decimal.NewFromString(p.str(name))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", name, err)
	}
	return d
}

// optDec treats an empty cell as zero.
func (p *rowParser) optDec(name string) decimal.Decimal {
	if p.str(name) == "" {
		return decimal.Zero
	}
	return p.dec(name)
}

func skipRow(logger *zap.Logger, path string, line int, err error) {
	logger.Warn("skipping unparseable row",
		zap.String("file", path),
		zap.Int("line", line),
		zap.Error(err),
	)
}
