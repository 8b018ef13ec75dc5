// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scix

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scix-harvest/internal/secrets"
	"github.com/pdiddy/scix-harvest/pkg/types"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name  string
		field types.SearchField
		terms []string
		want  string
	}{
		{"single term", types.FieldBody, []string{"Planetary Data System"}, `body:"Planetary Data System"`},
		{"several terms OR-ed", types.FieldFull, []string{"PDS", "Planetary Data System"}, `full:("PDS" OR "Planetary Data System")`},
		{"blank terms dropped", types.FieldTitle, []string{"", "  ", "Mars"}, `title:"Mars"`},
		{"quotes escaped", types.FieldAbstract, []string{`the "PDS"`}, `abstract:"the \"PDS\""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildQuery(tt.field, tt.terms)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildQueryNoTerms(t *testing.T) {
	_, err := BuildQuery(types.FieldBody, []string{" ", ""})
	assert.Equal(t, KindConfig, KindOf(err))
}

func TestPageParamsOffsets(t *testing.T) {
	// Page i starts at i*rows so consecutive pages never overlap.
	for page, want := range []int{0, 5, 10} {
		p := PageParams("q", types.FieldBody, page, 5)
		assert.Equal(t, want, p.Start, "page %d", page)
		assert.Equal(t, 5, p.Rows)
	}
}

func TestPageParamsHighlightFields(t *testing.T) {
	tests := []struct {
		field types.SearchField
		want  string
	}{
		{types.FieldBody, "body,abstract,ack,title"},
		{types.FieldFull, "body,abstract,ack,title"},
		{types.FieldTitle, "title,body,abstract,ack"},
		{types.FieldAbstract, "abstract,body,ack,title"},
	}
	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			v := PageParams("q", tt.field, 0, 10).Values()
			assert.Equal(t, tt.want, v.Get("hl.fl"))
		})
	}
}

func TestParamsValues(t *testing.T) {
	v := PageParams(`body:"x"`, types.FieldBody, 1, 20).Values()
	assert.Equal(t, "20", v.Get("start"))
	assert.Equal(t, "4", v.Get("hl.snippets"))
	assert.Equal(t, "100", v.Get("hl.fragsize"))
	assert.Equal(t, "score desc", v.Get("sort"))

	c := CountParams(`body:"x"`).Values()
	assert.Equal(t, "false", c.Get("hl"))
	assert.Equal(t, "5", c.Get("rows"))
	assert.Empty(t, c.Get("hl.fl"))
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		ok   bool
	}{
		{"valid", Params{Query: "q", Rows: 100}, true},
		{"max rows", Params{Query: "q", Rows: types.MaxRowsPerPage}, true},
		{"empty query", Params{Rows: 10}, false},
		{"zero rows", Params{Query: "q"}, false},
		{"too many rows", Params{Query: "q", Rows: types.MaxRowsPerPage + 1}, false},
		{"negative start", Params{Query: "q", Rows: 1, Start: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, KindConfig, KindOf(err))
		})
	}
}

func TestStringListDecoding(t *testing.T) {
	tests := []struct {
		in   string
		want StringList
	}{
		{`["a","b"]`, StringList{"a", "b"}},
		{`"solo"`, StringList{"solo"}},
		{`null`, nil},
		{`[]`, StringList{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got struct {
				L StringList `json:"l"`
			}
			require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(`{"l": %s}`, tt.in)), &got))
			assert.Equal(t, tt.want, got.L)
		})
	}
}

func TestCredential(t *testing.T) {
	c, err := NewCredential(testToken)
	require.NoError(t, err)
	assert.Equal(t, "[redacted]", c.String())
	assert.NotContains(t, fmt.Sprintf("%v %+v %#v", c, c, c), testToken)

	_, err = NewCredential("short")
	assert.Equal(t, KindConfig, KindOf(err))
	assert.ErrorIs(t, err, secrets.ErrTokenMalformed)
}

func TestLoadCredential(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")

	_, err := LoadCredential(path)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.ErrorIs(t, err, secrets.ErrTokenMissing)

	require.NoError(t, os.WriteFile(path, []byte(testToken+"\n"), 0o600))
	c, err := LoadCredential(path)
	require.NoError(t, err)
	assert.False(t, c.IsZero())
}
