// Package ingest reads bank statement exports into transactions.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"regnskap/internal/core"
)

// Sbanken exports are ISO-8859-1, semicolon separated, with a header line,
// a blank line, the column names, the data rows, a blank line and a footer.
const (
	sbankenColumns    = 8
	sbankenDataOffset = 3
	sbankenTrailer    = 2
	sbankenHeaderCell = 5
	sbankenHeaderLen  = 25
)

// ErrFormat means the file does not look like a Sbanken export.
var ErrFormat = errors.New("unrecognized statement format")

// ReadSbankenFile reads the Sbanken CSV export at path.
func ReadSbankenFile(path string) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	txs, err := ReadSbankenCSV(f)
	if err != nil {
		return nil, fmt.Errorf("statement %s: %w", path, err)
	}
	return txs, nil
}

// ReadSbankenCSV parses a Sbanken CSV export. It checks the header shape
// before reading rows and fails on the first malformed row.
func ReadSbankenCSV(r io.Reader) ([]core.Transaction, error) {
	rows, err := readRows(charmap.ISO8859_1.NewDecoder().Reader(r))
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", core.ErrValidation, err)
	}
	if len(rows) < sbankenDataOffset+sbankenTrailer {
		return nil, fmt.Errorf("%w: %w: %d lines", core.ErrValidation, ErrFormat, len(rows))
	}

	header := rows[0]
	if len(header) <= sbankenHeaderCell || header[0] != "" || utf8.RuneCountInString(header[sbankenHeaderCell]) != sbankenHeaderLen {
		return nil, fmt.Errorf("%w: %w: unexpected header", core.ErrValidation, ErrFormat)
	}

	data := rows[sbankenDataOffset : len(rows)-sbankenTrailer]
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: statement has no transactions", core.ErrValidation)
	}

	txs := make([]core.Transaction, 0, len(data))
	for i, row := range data {
		tx, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", core.ErrValidation, i+sbankenDataOffset+1, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// readRows splits the export into records line by line. Blank lines are
// kept as empty records because the layout is positional.
func readRows(r io.Reader) ([][]string, error) {
	var rows [][]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			rows = append(rows, nil)
			continue
		}
		cr := csv.NewReader(strings.NewReader(line))
		cr.Comma = ';'
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		record, err := cr.Read()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(rows)+1, err)
		}
		rows = append(rows, record)
	}
	return rows, sc.Err()
}

// parseRow maps booking date, value date, archive ref, counterparty, type,
// text, out and in. The archive reference is not kept.
func parseRow(row []string) (core.Transaction, error) {
	if len(row) < sbankenColumns {
		return core.Transaction{}, fmt.Errorf("expected %d columns, got %d", sbankenColumns, len(row))
	}
	booked, err := core.ParseDate(row[0])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("booking date %q: %w", row[0], err)
	}
	valued, err := core.ParseDate(row[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("value date %q: %w", row[1], err)
	}
	out, err := core.ParseAmount(row[6])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("out %q: %w", row[6], err)
	}
	in, err := core.ParseAmount(row[7])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("in %q: %w", row[7], err)
	}
	return core.Transaction{
		BookingDate:  booked,
		ValueDate:    valued,
		Counterparty: row[3],
		Type:         row[4],
		Description:  row[5],
		Out:          out,
		In:           in,
	}, nil
}
