// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scix-harvest/pkg/types"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		field types.SearchField
		terms []string
		want  string
	}{
		{types.FieldBody, []string{"Planetary Data System"}, "body_PlanetaryDataSystem.json"},
		{types.FieldFull, []string{"PDS", "Planetary Data System"}, "full_PDS_PlanetaryDataSystem.json"},
		{types.FieldTitle, []string{"a/b", ""}, "title_a-b.json"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputName(tt.field, tt.terms))
		})
	}
}

func TestManifestPath(t *testing.T) {
	assert.Equal(t, "out/body_PDS.run.yaml", ManifestPath("out/body_PDS.json"))
}

func TestEncodeResultsLayout(t *testing.T) {
	set := types.ResultSet{
		"abc": {
			HighlightedText: []string{"the <em>PDS</em> archive"},
			Source:          types.SourceMetadata{Bibcode: ptr("2020Icar..1")},
		},
	}
	data, err := EncodeResults(set)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "<em>PDS</em>")
	assert.Contains(t, out, "\n    \"abc\": {")
	assert.Contains(t, out, `"doi": null`)
	assert.Contains(t, out, `"highlighted_text": [`)

	empty, err := EncodeResults(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", strings.TrimSpace(string(empty)))
}

func TestSinkRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	sink, err := OpenSink(dir, "body_PDS.json")
	require.NoError(t, err)

	set := types.ResultSet{
		"b": {HighlightedText: []string{"two"}, Source: types.SourceMetadata{DOI: []string{"10.1/b"}}},
		"a": {HighlightedText: []string{}, Source: types.SourceMetadata{Title: []string{"One"}}},
	}
	require.NoError(t, sink.WriteResults(set))

	got, err := ReadResults(sink.Path())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, set["a"].Equal(got["a"]))
	assert.True(t, set["b"].Equal(got["b"]))

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := types.RunManifest{
		Status:     types.RunCompleted,
		Query:      `body:"PDS"`,
		OutputPath: sink.Path(),
		Documents:  2,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
	require.NoError(t, sink.WriteManifest(m))

	gotM, err := ReadManifest(sink.Path())
	require.NoError(t, err)
	assert.Equal(t, m.Status, gotM.Status)
	assert.Equal(t, m.Query, gotM.Query)
	assert.Equal(t, 2, gotM.Documents)
	assert.True(t, m.StartedAt.Equal(gotM.StartedAt))
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.json")
	require.NoError(t, writeAtomic(path, []byte("{}")))
	require.NoError(t, writeAtomic(path, []byte(`{"x":1}`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r.json", entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(data))
}
