package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"
)

// Separator is the field delimiter of order list exports.
const Separator = ';'

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is the raw tabular form of an upload before normalization.
// Every row holds exactly len(Columns) cells; an empty cell is absent.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Clone returns a copy of the table that shares no column slice with t.
// Row slices are shared since no step mutates cells.
func (t *Table) Clone() *Table {
	columns := make([]string, len(t.Columns))
	copy(columns, t.Columns)
	return &Table{Columns: columns, Rows: t.Rows}
}

// ColumnIndex returns the position of the first column named name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ParseOptions controls how raw bytes are decoded.
type ParseOptions struct {
	// Encoding is a WHATWG encoding label. Empty means utf-8.
	Encoding string
}

// Parse reads a semicolon separated export with a header row.
// Quoting is lenient and short rows are padded. Lines holding nothing but
// spaces or tabs are skipped; a line of bare separators such as ";;;;" is
// a row whose cells are all absent.
// Anything that prevents reading the table at all is returned as *ParseError.
func Parse(data []byte, opts ParseOptions) (*Table, error) {
	text, err := decode(data, opts.Encoding)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, parseErrorf(0, nil, "empty input")
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = Separator
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, csvError(err)
	}
	if isBlank(header) {
		return nil, parseErrorf(1, nil, "missing header row")
	}

	table := &Table{Columns: dedupeColumns(header)}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		if isWhitespaceLine(record) {
			continue
		}
		if len(record) > len(table.Columns) {
			line, _ := r.FieldPos(0)
			return nil, parseErrorf(line, nil, "expected %d fields, saw %d", len(table.Columns), len(record))
		}
		table.Rows = append(table.Rows, pad(record, len(table.Columns)))
	}

	return table, nil
}

// ParseWorkbook reads the first sheet of an xlsx workbook. The first
// non-blank row is the header.
func ParseWorkbook(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, parseErrorf(0, err, "not a readable workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, parseErrorf(0, nil, "workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, parseErrorf(0, err, "failed to read sheet %q", sheets[0])
	}

	headerAt := -1
	for i, row := range rows {
		if !isBlank(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, parseErrorf(0, nil, "empty input")
	}

	table := &Table{Columns: dedupeColumns(normalizeCells(rows[headerAt]))}
	for i, row := range rows[headerAt+1:] {
		if isBlank(row) {
			continue
		}
		if len(row) > len(table.Columns) {
			return nil, parseErrorf(headerAt+i+2, nil, "expected %d fields, saw %d", len(table.Columns), len(row))
		}
		table.Rows = append(table.Rows, pad(normalizeCells(row), len(table.Columns)))
	}

	return table, nil
}

// decode converts data from the named encoding to NFC normalized UTF-8
// without a byte order mark.
func decode(data []byte, label string) ([]byte, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "utf-8"
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, parseErrorf(0, err, "unsupported encoding %q", label)
	}

	var text []byte
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		if !utf8.Valid(data) {
			return nil, parseErrorf(invalidUTF8Line(data), nil, "input is not valid utf-8")
		}
		text = data
	} else {
		text, err = enc.NewDecoder().Bytes(data)
		if err != nil {
			return nil, parseErrorf(0, err, "failed to decode %s input", label)
		}
	}

	text = bytes.TrimPrefix(text, utf8BOM)
	return norm.NFC.Bytes(text), nil
}

func invalidUTF8Line(data []byte) int {
	line := 1
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			return line
		}
		if r == '\n' {
			line++
		}
		data = data[size:]
	}
	return 0
}

func csvError(err error) error {
	if errors.Is(err, io.EOF) {
		return parseErrorf(0, nil, "empty input")
	}
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return parseErrorf(perr.Line, perr.Err, "malformed csv")
	}
	return parseErrorf(0, err, "failed to read csv")
}

// dedupeColumns suffixes repeated header names with .1, .2 and so on.
func dedupeColumns(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, name := range header {
		n, dup := seen[name]
		seen[name] = n + 1
		if dup {
			name = fmt.Sprintf("%s.%d", name, n)
		}
		columns[i] = name
	}
	return columns
}

func normalizeCells(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = norm.NFC.String(cell)
	}
	return out
}

func pad(record []string, width int) []string {
	if len(record) == width {
		return record
	}
	row := make([]string, width)
	copy(row, record)
	return row
}

// isWhitespaceLine reports a line without separators that holds only
// spaces or tabs. csv.Reader already drops lines with no bytes at all.
func isWhitespaceLine(record []string) bool {
	return len(record) == 1 && strings.Trim(record[0], " \t") == ""
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
