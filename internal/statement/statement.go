// Package statement parses bank statement CSV exports into credit and debit
// lines. The bank layout, delimiter and character encoding are detected from
// the file itself.
package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownFormat is returned when no known bank layout matches the file.
var ErrUnknownFormat = errors.New("no matching statement format")

// Line is one money movement on a statement.
type Line struct {
	Row         int // 1-based record number, blank lines not counted
	Date        time.Time
	Description string
	Reference   string
	Amount      decimal.Decimal // always positive
	Credit      bool
}

// Statement is a parsed export.
type Statement struct {
	Profile string
	Charset string
	Lines   []Line
}

// Credits returns the incoming lines only.
func (s *Statement) Credits() []Line {
	var out []Line

	for _, l := range s.Lines {
		if l.Credit {
			out = append(out, l)
		}
	}

	return out
}

var delimiters = []rune{',', ';', '\t'}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) (*Statement, error) {
	utf8r, charset, err := utf8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	raw, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read statement: %w", err)
	}

	for _, comma := range delimiters {
		rows, err := readRows(raw, comma)
		if err != nil {
			continue
		}

		profile, cols, headerIdx := detectProfile(rows)
		if profile == nil {
			continue
		}

		lines, err := parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
		if err != nil {
			return nil, err
		}

		return &Statement{Profile: profile.Name, Charset: charset, Lines: lines}, nil
	}

	return nil, fmt.Errorf("%w: expected columns for %s", ErrUnknownFormat, profileNames())
}

func readRows(raw []byte, comma rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader.ReadAll()
}

func profileNames() string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}

	return strings.Join(names, ", ")
}

type colIndex map[string]int

// detectProfile scans rows for a header that matches a known profile.
// Returns the matched profile, column index map, and header row index.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := strings.TrimSpace(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows extracts lines below the header. Rows without a parseable date or
// a non-zero amount (separators, balances, footers) are skipped.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]Line, error) {
	refIdx := -1
	if idx, ok := cols[p.ReferenceCol]; ok && p.ReferenceCol != "" {
		refIdx = idx
	}

	var lines []Line

	for i, row := range rows {
		rowNum := headerRowNum + i + 1

		date, ok := parseDate(cellValue(row, cols[p.DateCol]), p.DateLayouts)
		if !ok {
			continue
		}

		amount, credit, ok := lineAmount(p, cols, row)
		if !ok {
			continue
		}

		desc := cellValue(row, cols[p.DescCol])
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		lines = append(lines, Line{
			Row:         rowNum,
			Date:        date,
			Description: desc,
			Reference:   cellValue(row, refIdx),
			Amount:      amount,
			Credit:      credit,
		})
	}

	return lines, nil
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func lineAmount(p *Profile, cols colIndex, row []string) (decimal.Decimal, bool, bool) {
	switch p.AmountMode {
	case amountSingle:
		d, err := parseAmount(cellValue(row, cols[p.AmountCol]))
		if err != nil || d.IsZero() {
			return decimal.Zero, false, false
		}

		return d.Abs(), d.IsPositive(), true
	case amountSplit:
		if d, err := parseAmount(cellValue(row, cols[p.DebitCol])); err == nil && !d.IsZero() {
			return d.Abs(), false, true
		}

		if d, err := parseAmount(cellValue(row, cols[p.CreditCol])); err == nil && !d.IsZero() {
			return d.Abs(), true, true
		}
	}

	return decimal.Zero, false, false
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
