// Package dataset loads station tables from disk into in-memory dataframes.
//
// Korean public-data portals publish the same table in several encodings, so
// the loader tries UTF-8 (with or without BOM) first and falls back to
// EUC-KR/CP949. Column headers are whitespace-trimmed; cell values are kept
// as raw strings for the schema normalizer to interpret.
package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Source is one loaded dataset: the raw table plus identity metadata.
// SHA256 is computed over the file bytes before any decoding, so two files
// with the same logical content but different encodings are distinct sources.
type Source struct {
	Name     string
	Path     string
	Encoding string
	SHA256   string
	Rows     int
	LoadedAt time.Time
	Frame    dataframe.DataFrame
}

// Load reads a dataset file and returns it as an all-string dataframe.
// Files ending in .xlsx or .xlsm are read as spreadsheets (first sheet);
// everything else is treated as CSV.
func Load(path string) (*Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	default:
		return LoadCSV(path)
	}
}

// LoadCSV reads a CSV file, resolving its text encoding first.
func LoadCSV(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("read %s: file is empty", path)
	}

	text, encoding, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	frame, err := frameFromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &Source{
		Name:     filepath.Base(path),
		Path:     path,
		Encoding: encoding,
		SHA256:   sha256Sum(raw),
		Rows:     frame.Nrow(),
		LoadedAt: time.Now().UTC(),
		Frame:    frame,
	}, nil
}

// LoadXLSX reads the first sheet of a spreadsheet file. Cell values arrive
// as the displayed strings, which is what the normalizer expects.
func LoadXLSX(path string) (*Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("open %s: workbook has no sheets", path)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheets[0], path, err)
	}

	frame, err := frameFromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &Source{
		Name:     filepath.Base(path),
		Path:     path,
		Encoding: "xlsx",
		SHA256:   sha256Sum(raw),
		Rows:     frame.Nrow(),
		LoadedAt: time.Now().UTC(),
		Frame:    frame,
	}, nil
}

// decode resolves the byte encoding of a text file. UTF-8 input (with or
// without BOM) passes through; anything else is decoded as EUC-KR, which
// also covers the CP949 extension used by most Korean CSV exports.
func decode(raw []byte) (string, string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		trimmed := raw[len(utf8BOM):]
		if utf8.Valid(trimmed) {
			return string(trimmed), "utf-8-sig", nil
		}
		raw = trimmed
	} else if utf8.Valid(raw) {
		return string(raw), "utf-8", nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), korean.EUCKR.NewDecoder()))
	if err != nil {
		return "", "", fmt.Errorf("euc-kr decode: %w", err)
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", "", fmt.Errorf("text is neither valid utf-8 nor euc-kr")
	}

	return string(decoded), "euc-kr", nil
}

// frameFromRecords builds an all-string dataframe from header + data rows.
// Headers are trimmed, empty header cells get positional names, repeated
// names keep their first occurrence and suffix the rest, and ragged rows
// are padded (or truncated) to the header width.
func frameFromRecords(records [][]string) (dataframe.DataFrame, error) {
	if len(records) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("no header row")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		headers[i] = name
	}
	dedupeHeaders(headers)

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(records)-1)
	}
	for _, row := range records[1:] {
		for i := range headers {
			if i < len(row) {
				columns[i] = append(columns[i], row[i])
			} else {
				columns[i] = append(columns[i], "")
			}
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, name := range headers {
		seriesList[i] = series.New(columns[i], series.String, name)
	}

	frame := dataframe.New(seriesList...)
	if frame.Err != nil {
		return dataframe.DataFrame{}, frame.Err
	}
	return frame, nil
}

// dedupeHeaders renames repeated header cells in place. The first occurrence
// keeps its name; later ones get a numeric suffix (위도, 위도.1, 위도.2),
// keeping series names unique.
func dedupeHeaders(headers []string) {
	seen := make(map[string]int, len(headers))
	for i, name := range headers {
		n, dup := seen[name]
		if !dup {
			seen[name] = 1
			continue
		}
		base := name
		for {
			name = fmt.Sprintf("%s.%d", base, n)
			if _, clash := seen[name]; !clash {
				break
			}
			n++
		}
		seen[base] = n + 1
		seen[name] = 1
		headers[i] = name
	}
}

func sha256Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
