// Package export renders transcript tables as CSV or PDF documents.
package export

// Table is a titled grid of cells followed by free-form summary lines.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Summary []string
}

// Format names a rendered output type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// Valid reports whether the format can be rendered.
func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatPDF
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
