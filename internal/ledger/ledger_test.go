// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scix-harvest/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(status types.RunStatus, docs int) types.RunManifest {
	started := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	m := types.RunManifest{
		Status:       status,
		Query:        `body:"Planetary Data System"`,
		OutputPath:   "out/body_PlanetaryDataSystem.json",
		PageReached:  1,
		PagesFetched: 2,
		Documents:    docs,
		NumFound:     350,
		StartedAt:    started,
		FinishedAt:   started.Add(5 * time.Second),
	}
	if status == types.RunFailed {
		m.ErrorKind = "rate_limit"
		m.Error = "page 2: rate limited"
	}
	return m
}

func TestOpenCreatesDBFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, DBFile))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DBFile), s.Path())
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.RecordRun(context.Background(), sampleRun(types.RunCompleted, 3)))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecordAndListRuns(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	want := sampleRun(types.RunFailed, 100)
	require.NoError(t, s.RecordRun(ctx, sampleRun(types.RunCompleted, 3)))
	require.NoError(t, s.RecordRun(ctx, want))

	runs, err := s.ListRuns(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	got := runs[0]
	assert.Equal(t, int64(2), got.ID)
	assert.Equal(t, types.RunFailed, got.Status)
	assert.Equal(t, "rate_limit", got.ErrorKind)
	assert.Equal(t, want.Query, got.Query)
	assert.Equal(t, 100, got.Documents)
	assert.Equal(t, 350, got.NumFound)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt))
}

func TestListRunsFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, st := range []types.RunStatus{types.RunCompleted, types.RunInterrupted, types.RunCompleted, types.RunFailed} {
		require.NoError(t, s.RecordRun(ctx, sampleRun(st, 1)))
	}

	completed, err := s.ListRuns(ctx, ListOptions{Status: types.RunCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	limited, err := s.ListRuns(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, types.RunFailed, limited[0].Status)
}

func TestWriteFormats(t *testing.T) {
	runs := []Run{{ID: 7, RunManifest: sampleRun(types.RunInterrupted, 42)}}

	var table bytes.Buffer
	require.NoError(t, Write(&table, runs, FormatTable))
	assert.Contains(t, table.String(), "STATUS")
	assert.Contains(t, table.String(), "interrupted")
	assert.Contains(t, table.String(), `body:"Planetary Data System"`)

	var js bytes.Buffer
	require.NoError(t, Write(&js, runs, FormatJSON))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "interrupted", decoded[0]["status"])
	assert.EqualValues(t, 42, decoded[0]["documents"])

	var ym bytes.Buffer
	require.NoError(t, Write(&ym, runs, FormatYAML))
	var fromYAML []Run
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	require.Len(t, fromYAML, 1)
	assert.Equal(t, int64(7), fromYAML[0].ID)
	assert.Equal(t, 42, fromYAML[0].Documents)

	assert.Error(t, Write(&bytes.Buffer{}, runs, "xml"))
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, FormatTable))
	assert.Equal(t, "no runs recorded\n", buf.String())
}
