package dataset

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample(t *testing.T) *Dataset {
	t.Helper()
	ds, err := FromRecords([][]string{
		{"\ufefftime", "", "label"},
		{"2024-01-01", "1.5", "a"},
		{"2024-01-02", "n/a", "b"},
		{"2024-01-03", "3"},
	})
	require.NoError(t, err)
	return ds
}

func TestFromRecords(t *testing.T) {
	ds := sample(t)

	assert.Equal(t, []string{"time", "Column_2", "label"}, ds.Headers)
	assert.Equal(t, 3, ds.RowCount())
	assert.Equal(t, []string{"2024-01-03", "3", ""}, ds.Rows[2])
	assert.Equal(t, []int{1}, ds.NumericCols)
	assert.Equal(t, []string{"Column_2"}, ds.NumericHeaders())
}

func TestFromRecords_Errors(t *testing.T) {
	_, err := FromRecords(nil)
	assert.EqualError(t, err, "empty file")

	_, err = FromRecords([][]string{{"a", "b"}, {"1", "2", "3"}})
	assert.EqualError(t, err, "row 2 has 3 fields, header has 2")
}

func TestDetectNumericColumns(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  bool
	}{
		{"all numbers", []string{"1", "2", "3"}, true},
		{"nulls ignored", []string{"1", "", "NaN", "none"}, true},
		{"four of five", []string{"1", "2", "3", "4", "x"}, true},
		{"three of five", []string{"1", "2", "3", "x", "y"}, false},
		{"only nulls", []string{"", "null"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.cells))
			for i, c := range tt.cells {
				rows[i] = []string{c}
			}
			got := DetectNumericColumns([]string{"x"}, rows)
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestFloats(t *testing.T) {
	ds := sample(t)

	vals, err := ds.Floats("Column_2")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, 1.5, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
	assert.Equal(t, 3.0, vals[2])

	_, err = ds.Floats("missing")
	var notFound *ColumnNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.Column)
}

func TestDropEmptyRows(t *testing.T) {
	ds, err := FromRecords([][]string{{"a", "b"}, {"1", "2"}, {"", "NA"}, {" ", ""}, {"3", ""}})
	require.NoError(t, err)

	assert.Equal(t, 2, ds.DropEmptyRows())
	assert.Equal(t, [][]string{{"1", "2"}, {"3", ""}}, ds.Rows)
}

func TestWithColumn(t *testing.T) {
	ds := sample(t)
	before := [][]string{}
	for _, r := range ds.Rows {
		before = append(before, append([]string(nil), r...))
	}

	added, err := ds.WithColumn("flag", []string{"1", "4", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "Column_2", "label", "flag"}, added.Headers)
	assert.Equal(t, []string{"2024-01-02", "n/a", "b", "4"}, added.Rows[1])
	assert.Equal(t, []int{1, 3}, added.NumericCols)

	replaced, err := added.WithColumn("flag", []string{"9", "9", "9"})
	require.NoError(t, err)
	assert.Len(t, replaced.Headers, 4)
	assert.Equal(t, "9", replaced.Rows[0][3])

	if diff := cmp.Diff(before, ds.Rows); diff != "" {
		t.Errorf("source rows changed (-want +got):\n%s", diff)
	}
	assert.Len(t, ds.Headers, 3)

	_, err = ds.WithColumn("flag", []string{"1"})
	assert.Error(t, err)
}

func TestReorder(t *testing.T) {
	ds := sample(t)

	out, err := ds.Reorder([]int{2, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", out.Rows[0][0])
	assert.Equal(t, "2024-01-01", out.Rows[1][0])
	assert.Equal(t, "2024-01-01", ds.Rows[0][0])

	_, err = ds.Reorder([]int{0, 1})
	assert.Error(t, err)
	_, err = ds.Reorder([]int{0, 1, 5})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{1, math.NaN(), 2, 3, math.Inf(1), 4})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 2.5, s.Mean)
	assert.InDelta(t, 1.29099, s.Std, 1e-5)

	one, err := Summarize([]float64{7})
	require.NoError(t, err)
	assert.Zero(t, one.Std)

	_, err = Summarize([]float64{math.NaN()})
	assert.Error(t, err)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "2.5", FormatFloat(2.5))
	assert.Equal(t, "100000", FormatFloat(1e5))
	assert.Equal(t, "", FormatFloat(math.NaN()))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sample(t).WriteCSV(&buf))
	assert.Equal(t,
		"time,Column_2,label\n2024-01-01,1.5,a\n2024-01-02,n/a,b\n2024-01-03,3,\n",
		buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	tallies := []Tally{{Label: "Pass", Count: 2}, {Label: "Fail", Count: 1}}
	require.NoError(t, sample(t).WriteXLSX(&buf, tallies))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Data", "Summary"}, f.GetSheetList())

	rows, err := f.GetRows("Data")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"time", "Column_2", "label"}, rows[0])
	assert.Equal(t, "1.5", rows[1][1])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"flag", "count"}, {"Pass", "2"}, {"Fail", "1"}}, summary)
}
