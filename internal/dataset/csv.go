package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// ReadRows parses a header-driven, comma-delimited CSV with quoted fields.
// Rows shorter than the header leave their trailing columns absent; blank
// lines are skipped. Gzip-compressed input is detected and decompressed.
func ReadRows(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(2); err == nil && bytes.Equal(head, gzipMagic) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer zr.Close()
		return readCSV(zr)
	}
	return readCSV(br)
}

func readCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv is empty (no header row)")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []Row
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}
		row := make(Row, len(header))
		for j, h := range header {
			if j < len(record) {
				row[h] = record[j]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Normalize trims every cell and applies the Telco conventions: Churn becomes
// "1" for yes and "0" otherwise, and SeniorCitizen 1/0 becomes Yes/No so it can
// be encoded as a yes/no column. Numeric cells are left as read; the encoder
// counts the ones that do not parse and imputes them. Empty cells stay empty.
func (s Schema) Normalize(in Row) Row {
	r := make(Row, len(in))
	for k, v := range in {
		r[k] = strings.TrimSpace(v)
	}

	if v, ok := r[s.Target]; ok && v != "" {
		if strings.EqualFold(v, "yes") {
			r[s.Target] = "1"
		} else {
			r[s.Target] = "0"
		}
	}
	if v, ok := r[ColSenior]; ok && v != "" {
		if v == "1" {
			r[ColSenior] = "Yes"
		} else {
			r[ColSenior] = "No"
		}
	}
	return r
}

// NormalizeAll applies Normalize to every row.
func (s Schema) NormalizeAll(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = s.Normalize(r)
	}
	return out
}
