// Package export renders flattened schedule records into download formats.
package export

// Dataset is tabular content ready for rendering: ordered headers plus rows
// keyed by header name. Missing keys render as empty cells.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// FromRecords wraps pre-flattened records into a Dataset.
func FromRecords(headers []string, rows []map[string]string) Dataset {
	return Dataset{Headers: headers, Rows: rows}
}
