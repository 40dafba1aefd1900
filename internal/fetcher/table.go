package fetcher

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// TopicColumn is the header that names the topic column in an input sheet.
const TopicColumn = "Topic"

// Table is a spreadsheet's header row followed by its data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the header cell equal to name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Records returns each data row keyed by header. Missing trailing cells map
// to the empty string.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Header))
		for i, h := range t.Header {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// Topics returns the non-blank values of the Topic column in row order with
// duplicates dropped (first occurrence kept).
func (t *Table) Topics() ([]string, error) {
	col := t.Column(TopicColumn)
	if col < 0 {
		return nil, eris.Errorf("fetcher: no %q column in header %q", TopicColumn, t.Header)
	}

	seen := make(map[string]bool)
	var topics []string
	for _, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		topic := strings.TrimSpace(row[col])
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}
	return topics, nil
}

// ReadTableFile reads a .xlsx or .csv file from disk.
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open table")
	}
	defer f.Close() //nolint:errcheck
	return ReadTable(filepath.Base(path), f)
}

// ReadTable parses r as a spreadsheet, choosing the format from name's
// extension. Only the first sheet of a workbook is read.
func ReadTable(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read xlsx")
		}
		return readXLSX(data)
	case ".csv":
		return readCSV(r)
	default:
		return nil, eris.Errorf("fetcher: unsupported table format %q (want .xlsx or .csv)", name)
	}
}

// ReadTopics reads the Topic column from a .xlsx or .csv file.
func ReadTopics(path string) ([]string, error) {
	t, err := ReadTableFile(path)
	if err != nil {
		return nil, err
	}
	return t.Topics()
}

func readXLSX(data []byte) (*Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("fetcher: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	return newTable(rows)
}

func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read csv row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		rows = append(rows, record)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return newTable(rows)
}

func newTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, eris.New("fetcher: table is empty")
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}
