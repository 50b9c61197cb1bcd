package cli

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

const nullText = "NULL"

func validateOutputFormat(output string) error {
	switch output {
	case "", "table", "json", "yaml":
		return nil
	}
	return fmt.Errorf("unsupported output format %q: use 'table', 'json' or 'yaml'", output)
}

// renderRows drains rows and writes them to w in the given format.
func renderRows(w io.Writer, rows *sql.Rows, format string) error {
	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	var records [][]interface{}
	for rows.Next() {
		cells := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i, c := range cells {
			cells[i] = normalizeCell(c)
		}
		records = append(records, cells)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	switch format {
	case "json":
		return printJSON(w, toMaps(columns, records))
	case "yaml":
		out, err := yaml.Marshal(toMaps(columns, records))
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, rec := range records {
		line := make([]string, len(rec))
		for i, c := range rec {
			line[i] = cellText(c)
		}
		table.Append(line)
	}
	table.Render()
	return nil
}

func normalizeCell(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return v
}

func cellText(v interface{}) string {
	if v == nil {
		return nullText
	}
	return fmt.Sprint(v)
}

// toMaps keys each record by column name.
func toMaps(columns []string, records [][]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		m := make(map[string]interface{}, len(columns))
		for i, c := range columns {
			m[c] = rec[i]
		}
		out = append(out, m)
	}
	return out
}
