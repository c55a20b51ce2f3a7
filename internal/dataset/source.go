package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/mamadbah2/ppe-coverage/internal/repository/sheets"
)

// Source yields raw tabular rows, header first.
type Source interface {
	Name() string
	// Fingerprint changes whenever the underlying data changes.
	Fingerprint(ctx context.Context) (string, error)
	Rows(ctx context.Context) ([][]string, error)
}

// FileSource reads a delimited file from disk.
type FileSource struct {
	Path  string
	Comma rune // defaults to ','
}

// Name returns the file path.
func (s FileSource) Name() string {
	return s.Path
}

// Fingerprint combines the path with the file's modification time and size.
func (s FileSource) Fingerprint(_ context.Context) (string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", s.Path, err)
	}
	return fmt.Sprintf("%s@%d:%d", s.Path, info.ModTime().UnixNano(), info.Size()), nil
}

// Rows reads every record of the file.
func (s FileSource) Rows(_ context.Context) ([][]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	if s.Comma != 0 {
		reader.Comma = s.Comma
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", s.Path, err)
	}
	return rows, nil
}

// SheetSource reads stock rows from a Google Sheets range.
type SheetSource struct {
	Reader sheets.Reader
	Range  string
}

// Name returns the sheet range.
func (s SheetSource) Name() string {
	return "sheets:" + s.Range
}

// Fingerprint hashes the current values of the range.
func (s SheetSource) Fingerprint(ctx context.Context) (string, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, row := range rows {
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return s.Name() + "#" + hex.EncodeToString(h.Sum(nil)), nil
}

// Rows converts the range values into strings.
func (s SheetSource) Rows(ctx context.Context) ([][]string, error) {
	values, err := s.Reader.ReadRange(ctx, s.Range)
	if err != nil {
		return nil, fmt.Errorf("load stock range: %w", err)
	}

	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = fmt.Sprint(cell)
		}
		rows[i] = cells
	}
	return rows, nil
}
