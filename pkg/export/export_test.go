package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transcriptTable() Table {
	return Table{
		Title:   "Transcript: Ann",
		Headers: []string{"Course", "Subject", "Final"},
		Rows: [][]string{
			{"Science", "Physics", "76.00"},
			{"Science"},
		},
		Summary: []string{"Balance: 0.00"},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(transcriptTable())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Course,Subject,Final", lines[0])
	assert.Equal(t, "Science,Physics,76.00", lines[1])
	assert.Equal(t, "Science,,", lines[2])
	assert.Equal(t, "Balance: 0.00", lines[4])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(transcriptTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestFormat(t *testing.T) {
	assert.True(t, FormatPDF.Valid())
	assert.False(t, Format("xlsx").Valid())
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
}
