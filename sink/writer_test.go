package sink

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/osintlab/WDX/wikidata"
)

func testEntity() *wikidata.Entity {
	return &wikidata.Entity{
		ID:   "Q60045",
		Kind: wikidata.KindPerson,
		Labels: map[string]string{
			"en": "Albert Speer",
			"de": "Albert Speer",
		},
		Descriptions: map[string]string{
			"en": "German architect",
		},
		Aliases: map[string][]string{
			"en": {"Albert Speer Sr."},
		},
		Properties: map[string][]string{
			"P569": {"1905-03-19T00:00:00Z"},
			"P106": {"architect", "politician"},
		},
	}
}

func TestWriterJSONLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Dir: dir, Formats: []string{FormatJSONL}}, nil)
	require.NoError(t, err)

	require.NoError(t, w.Write(testEntity()))
	require.NoError(t, w.Close())

	f, err := os.Open(filepath.Join(dir, EntitiesJSONLFile))
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var got wikidata.Entity
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &got))
	assert.Equal(t, "Q60045", got.ID)
	assert.Equal(t, wikidata.KindPerson, got.Kind)
	assert.Equal(t, "Albert Speer", got.Labels["en"])
	assert.Equal(t, []string{"architect", "politician"}, got.Properties["P106"])

	assert.False(t, scanner.Scan())
}

func TestWriterMsgpackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Dir: dir, Formats: []string{FormatMsgpack}}, nil)
	require.NoError(t, err)

	require.NoError(t, w.Write(testEntity()))
	second := testEntity()
	second.ID = "Q42"
	require.NoError(t, w.Write(second))
	require.NoError(t, w.Close())

	f, err := os.Open(filepath.Join(dir, EntitiesMsgpackFile))
	require.NoError(t, err)
	defer f.Close()

	dec := msgpack.NewDecoder(f)

	var first, got wikidata.Entity
	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, "Q60045", first.ID)
	require.NoError(t, dec.Decode(&got))
	assert.Equal(t, "Q42", got.ID)
	assert.Equal(t, "German architect", got.Descriptions["en"])

	// Stream ends cleanly after the last record.
	err = dec.Decode(&got)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriterAliasCSV(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Dir: dir, Formats: []string{FormatCSV}}, nil)
	require.NoError(t, err)

	require.NoError(t, w.Write(testEntity()))
	require.NoError(t, w.Close())

	f, err := os.Open(filepath.Join(dir, AliasesCSVFile))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, []string{"id", "language", "name", "is_primary"}, rows[0])

	var sawLabel, sawAlias bool
	for _, row := range rows[1:] {
		require.Len(t, row, 4)
		assert.Equal(t, "Q60045", row[0])
		if row[2] == "Albert Speer" && row[3] == "true" {
			sawLabel = true
		}
		if row[2] == "Albert Speer Sr." && row[3] == "false" {
			sawAlias = true
		}
	}
	assert.True(t, sawLabel)
	assert.True(t, sawAlias)
}

func TestWriterEmptyRunStillWritesHeader(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Dir: dir, Formats: []string{FormatCSV}}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(filepath.Join(dir, AliasesCSVFile))
	require.NoError(t, err)
	assert.Equal(t, "id,language,name,is_primary\n", string(data))
}

func TestWriterDefaultsToAllFormats(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Dir: dir}, nil)
	require.NoError(t, err)

	require.NoError(t, w.Write(testEntity()))
	assert.Equal(t, int64(1), w.Written())
	require.NoError(t, w.Close())

	for _, name := range []string{EntitiesJSONLFile, EntitiesMsgpackFile, AliasesCSVFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestWriterRejectsUnknownFormat(t *testing.T) {
	_, err := NewWriter(Options{Dir: t.TempDir(), Formats: []string{"parquet"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parquet")
}

func TestWriterFlushEvery(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(Options{Dir: dir, Formats: []string{FormatJSONL}, FlushEvery: 2}, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(testEntity()))
	require.NoError(t, w.Write(testEntity()))

	// Two writes with FlushEvery=2 hit the flush boundary, so the records
	// are on disk before Close.
	data, err := os.ReadFile(filepath.Join(dir, EntitiesJSONLFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Q60045")
}
