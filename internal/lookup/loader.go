package lookup

import (
	"FlowTagger/internal/model"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Column names required in the lookup table header.
const (
	ColumnDstPort  = "dstport"
	ColumnProtocol = "protocol"
	ColumnTag      = "tag"
)

const utf8BOM = "\ufeff"

// Load reads a lookup table CSV file and builds the tag index.
// The header must name the dstport, protocol and tag columns in any order;
// other columns are ignored. Later rows overwrite earlier rows with the same key.
func Load(path string) (*model.TagIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("lookup table file %s: %w", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open lookup table: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse builds the tag index from CSV content.
// A bare quote inside an unquoted field is kept as a literal character; a
// quoted field left open at the end of the input is a format error.
func Parse(r io.Reader) (*model.TagIndex, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup table: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("lookup table is empty, expected columns %s, %s and %s: %w",
			ColumnDstPort, ColumnProtocol, ColumnTag, model.ErrFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid CSV format: %v: %w", err, model.ErrFormat)
	}
	lastLine, lastCol := reader.FieldPos(len(header) - 1)

	columns := indexColumns(header)
	portCol, okPort := columns[ColumnDstPort]
	protoCol, okProto := columns[ColumnProtocol]
	tagCol, okTag := columns[ColumnTag]
	if !okPort || !okProto || !okTag {
		return nil, fmt.Errorf("CSV file must have %s, %s, and %s columns: %w",
			ColumnDstPort, ColumnProtocol, ColumnTag, model.ErrFormat)
	}

	tags := make(map[model.LookupKey]string)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV format: %v: %w", err, model.ErrFormat)
		}
		lastLine, lastCol = reader.FieldPos(len(row) - 1)

		key := model.LookupKey{
			Port:     field(row, portCol),
			Protocol: strings.ToLower(field(row, protoCol)),
		}
		tags[key] = field(row, tagCol)
	}

	if unterminatedQuote(data, lastLine, lastCol) {
		return nil, fmt.Errorf("invalid CSV format: quoted field starting on line %d, column %d is not closed: %w",
			lastLine, lastCol, model.ErrFormat)
	}

	return model.NewTagIndex(tags), nil
}

// unterminatedQuote reports whether the field starting at line and col (both
// 1-based, col in bytes) is quoted and runs to the end of data without a
// closing quote. Only the last field of the input can be left open, since an
// open quoted field swallows everything after it.
func unterminatedQuote(data []byte, line, col int) bool {
	offset := 0
	for l := 1; l < line; l++ {
		next := bytes.IndexByte(data[offset:], '\n')
		if next < 0 {
			return false
		}
		offset += next + 1
	}
	offset += col - 1
	if offset >= len(data) || data[offset] != '"' {
		return false
	}

	// After the opening quote, "" is an escaped quote and a single trailing
	// quote closes the field, so an even trailing run leaves it open.
	body := bytes.TrimRight(data[offset+1:], "\r\n")
	run := len(body) - len(bytes.TrimRight(body, `"`))
	return run%2 == 0
}

// indexColumns maps each header name to its position. When a name repeats,
// the last occurrence wins.
func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		columns[strings.TrimSpace(name)] = i
	}
	return columns
}

// field returns the value at position i, or "" for short rows.
func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
