package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "CS101 week 3",
		Summary: []SummaryLine{{Label: "Percentage", Value: "50%"}},
		Headers: []string{"Student ID", "Name", "Status"},
		Rows: [][]string{
			{"stu-1", "Ada Lovelace", "present"},
			{"stu-3", "José Núñez", "absent"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	require.Error(t, err)
}

func TestCSVRender(t *testing.T) {
	out, err := Render(FormatCSV, sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Student ID,Name,Status\nstu-1,Ada Lovelace,present\nstu-3,José Núñez,absent\n", string(out))
}

func TestCSVRejectsRaggedRows(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"only-one"})
	_, err := NewCSVExporter().Render(data)
	require.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := Render(FormatPDF, sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := Render(FormatPDF, Dataset{})
	require.Error(t, err)
	_, err = Render(FormatCSV, Dataset{})
	require.Error(t, err)
}
