package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	data := "exported by shop\n\nid,qty\na,1\n,\nb\n"
	tb, err := ReadCSV(strings.NewReader(data), ',', Format{Header: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "qty"}, tb.Columns)
	require.Equal(t, 2, tb.Len())
	assert.Equal(t, "a", tb.Rows[0]["id"])
	assert.Equal(t, "1", tb.Rows[0]["qty"])
	assert.Nil(t, tb.Rows[1]["qty"], "ragged rows are padded")
	assert.Equal(t, []int{4, 6}, tb.Lines, "rows keep their file lines across skipped records")
}

func TestReadCSV_LinesAfterBlankRecord(t *testing.T) {
	data := `id,mfr
R1,TI
,
R2,TI
"R3
rev b",
`
	tb, err := ReadCSV(strings.NewReader(data), ',', Format{})
	require.NoError(t, err)

	require.Equal(t, 3, tb.Len())
	assert.Equal(t, []int{2, 4, 5}, tb.Lines)
	assert.Equal(t, 5, tb.Line(2))
	assert.Zero(t, tb.Line(3))
}

func TestReadCSV_HeaderBeyondData(t *testing.T) {
	tb, err := ReadCSV(strings.NewReader("only\n"), ',', Format{Header: 3})
	require.NoError(t, err)
	assert.Zero(t, tb.Len())
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	semi := filepath.Join(dir, "eu.csv")
	require.NoError(t, os.WriteFile(semi, []byte("id;price\na;0,5\n"), 0o644))
	tb, err := ReadFile(semi, Format{})
	require.NoError(t, err)
	assert.Equal(t, "0,5", tb.Rows[0]["price"])

	tsv := filepath.Join(dir, "x.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte("id\tqty\na\t1\n"), 0o644))
	tb, err = ReadFile(tsv, Format{})
	require.NoError(t, err)
	assert.Equal(t, "1", tb.Rows[0]["qty"])

	latin := filepath.Join(dir, "latin.csv")
	require.NoError(t, os.WriteFile(latin, []byte("id\nR\xe9sistance\n"), 0o644))
	tb, err = ReadFile(latin, Format{})
	require.NoError(t, err)
	assert.Equal(t, "R\uFFFDsistance", tb.Rows[0]["id"])

	_, err = ReadFile(filepath.Join(dir, "x.xlsx"), Format{})
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = ReadFile(filepath.Join(dir, "missing.csv"), Format{})
	assert.Error(t, err)
}
