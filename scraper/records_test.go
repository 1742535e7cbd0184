// backend/scraper/records_test.go
package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelimited(t *testing.T) {
	csvData := "Province,Population,Growth\nHanoi,8435700,1.8\nDanang,1230000,2.1\n"
	columns, records, err := ParseDelimited(strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, []string{"Province", "Population", "Growth"}, columns)
	require.Len(t, records, 2)

	assert.Equal(t, "Hanoi", records[0]["Province"])
	assert.Equal(t, int64(8435700), records[0]["Population"])
	assert.Equal(t, 1.8, records[0]["Growth"])
}

func TestParseDelimited_ShortRowsAndBlankHeaders(t *testing.T) {
	csvData := "Name,,Value\nalpha,x\n"
	columns, records, err := ParseDelimited(strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "column_2", "Value"}, columns)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0]["Value"])
}

func TestParseDelimited_Empty(t *testing.T) {
	columns, records, err := ParseDelimited(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, columns)
	assert.Nil(t, records)
}

func TestEstimateRecordCount(t *testing.T) {
	// 10 newlines in a 100-byte chunk of a 1000-byte file extrapolates to
	// 100 lines, minus one for the header row.
	chunk := make([]byte, 100)
	for i := 0; i < 10; i++ {
		chunk[i*10] = '\n'
	}
	assert.Equal(t, int64(99), EstimateRecordCount(chunk, 1000))
}

func TestEstimateRecordCount_Degenerate(t *testing.T) {
	assert.Equal(t, int64(0), EstimateRecordCount(nil, 1000))
	assert.Equal(t, int64(0), EstimateRecordCount([]byte("no newlines here"), 1000))
	assert.Equal(t, int64(0), EstimateRecordCount([]byte("a\nb\n"), 0))
}
