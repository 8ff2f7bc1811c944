// Package table reads registration exports into raw registration rows.
package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"attendanceingest/internal/domain"
)

// Load reads the table at path, choosing the reader by extension (.csv or .xlsx).
func Load(path string, mapping ColumnMapping) ([]domain.RegistrationRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f, mapping)
	case ".xlsx":
		return readXLSX(path, mapping)
	default:
		return nil, fmt.Errorf("unsupported table format %q: %w", filepath.Ext(path), domain.ErrInvalidInput)
	}
}

// ReadCSV reads a CSV export. A UTF-8 byte order mark is skipped and records may have any
// number of fields.
func ReadCSV(r io.Reader, mapping ColumnMapping) ([]domain.RegistrationRow, error) {
	cr := csv.NewReader(stripUTF8BOM(bufio.NewReader(r)))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	return buildRows(header, records, mapping)
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

// readXLSX reads the first sheet of a workbook.
func readXLSX(path string, mapping ColumnMapping) ([]domain.RegistrationRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ErrEmptyTable
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrEmptyTable
	}
	return buildRows(rows[0], rows[1:], mapping)
}

type columnIndex map[string]int

// newColumnIndex keys headers by their trimmed lowercase form; the first duplicate wins.
func newColumnIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup && key != "" {
			idx[key] = i
		}
	}
	return idx
}

func (c columnIndex) lookup(header string) (int, bool) {
	if strings.TrimSpace(header) == "" {
		return 0, false
	}
	i, ok := c[strings.ToLower(strings.TrimSpace(header))]
	return i, ok
}

func buildRows(header []string, records [][]string, mapping ColumnMapping) ([]domain.RegistrationRow, error) {
	idx := newColumnIndex(header)

	identity := mapping.identityColumns()
	found := false
	for _, h := range identity {
		if _, ok := idx.lookup(h); ok {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: need one of %s", domain.ErrMissingColumns, strings.Join(identity, ", "))
	}

	referral := ""
	for _, h := range mapping.ReferralColumns {
		if _, ok := idx.lookup(h); ok {
			referral = h
			break
		}
	}

	rows := make([]domain.RegistrationRow, 0, len(records))
	for i, rec := range records {
		if blank(rec) {
			continue
		}
		get := func(h string) string {
			j, ok := idx.lookup(h)
			if !ok || j >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[j])
		}
		rows = append(rows, domain.RegistrationRow{
			Line:           i + 2,
			FirstName:      get(mapping.FirstName),
			LastName:       get(mapping.LastName),
			Email:          get(mapping.Email),
			SchoolEmail:    get(mapping.SchoolEmail),
			Phone:          get(mapping.Phone),
			OrderStatus:    get(mapping.OrderStatus),
			TicketsScanned: get(mapping.TicketsScanned),
			OrderDateTime:  get(mapping.OrderDateTime),
			TrackingLink:   get(mapping.TrackingLink),
			Gender:         get(mapping.Gender),
			School:         get(mapping.School),
			ClassYear:      get(mapping.ClassYear),
			Referral:       get(referral),
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
