// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scix

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/scix-harvest/pkg/types"
)

// MetadataFields is the fixed field list requested for every document.
var MetadataFields = []string{
	"id", "bibcode", "title", "author", "pubdate", "doctype", "property", "doi", "grant",
}

const (
	defaultSnippets = 4
	defaultFragSize = 100
	defaultSort     = "score desc"
)

// Params holds the query string parameters of one search request.
type Params struct {
	// Query is the Solr query, e.g. body:"Planetary Data System".
	Query string

	// Start is the zero-based offset; Rows the page size (1..MaxRowsPerPage).
	Start int
	Rows  int

	// Fields is the fl list of returned document fields.
	Fields []string

	// Highlight enables hl; HighlightFields is hl.fl.
	Highlight       bool
	HighlightFields []string
	Snippets        int
	FragSize        int

	Sort string
}

// highlightFields are the document fields highlight snippets are requested
// from, in the order they appear in a record.
var highlightFields = []string{"body", "abstract", "ack", "title"}

// HighlightFields returns hl.fl for a search over field: the searched field
// first when it is highlightable, then the rest of body, abstract, ack and
// title. full is a combined search field and never highlighted itself.
func HighlightFields(field types.SearchField) []string {
	out := make([]string, 0, len(highlightFields))
	if slices.Contains(highlightFields, string(field)) {
		out = append(out, string(field))
	}
	for _, f := range highlightFields {
		if f != string(field) {
			out = append(out, f)
		}
	}
	return out
}

// PageParams returns the parameters for zero-based page of a highlight
// harvest over field.
func PageParams(query string, field types.SearchField, page, rows int) Params {
	return Params{
		Query:           query,
		Start:           page * rows,
		Rows:            rows,
		Fields:          MetadataFields,
		Highlight:       true,
		HighlightFields: HighlightFields(field),
		Snippets:        defaultSnippets,
		FragSize:        defaultFragSize,
		Sort:            defaultSort,
	}
}

// CountParams returns a minimal request used only to read numFound.
func CountParams(query string) Params {
	return Params{
		Query:  query,
		Rows:   5,
		Fields: []string{"author", "title", "pubyear", "doi"},
		Sort:   defaultSort,
	}
}

// Validate rejects parameters the provider would refuse. Failures are KindConfig.
func (p Params) Validate() error {
	switch {
	case strings.TrimSpace(p.Query) == "":
		return &Error{Kind: KindConfig, Err: fmt.Errorf("empty query")}
	case p.Start < 0:
		return &Error{Kind: KindConfig, Err: fmt.Errorf("negative start offset %d", p.Start)}
	case p.Rows <= 0 || p.Rows > types.MaxRowsPerPage:
		return &Error{Kind: KindConfig, Err: fmt.Errorf("rows %d outside 1..%d", p.Rows, types.MaxRowsPerPage)}
	}
	return nil
}

// Values encodes p as query string values.
func (p Params) Values() url.Values {
	v := url.Values{
		"q":     {p.Query},
		"start": {strconv.Itoa(p.Start)},
		"rows":  {strconv.Itoa(p.Rows)},
		"hl":    {strconv.FormatBool(p.Highlight)},
	}
	if len(p.Fields) > 0 {
		v.Set("fl", strings.Join(p.Fields, ","))
	}
	if p.Highlight {
		if len(p.HighlightFields) > 0 {
			v.Set("hl.fl", strings.Join(p.HighlightFields, ","))
		}
		if p.Snippets > 0 {
			v.Set("hl.snippets", strconv.Itoa(p.Snippets))
		}
		if p.FragSize > 0 {
			v.Set("hl.fragsize", strconv.Itoa(p.FragSize))
		}
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	return v
}

// BuildQuery returns field:"term" for one term and field:("a" OR "b") for
// several. Blank terms are dropped; embedded quotes are escaped.
func BuildQuery(field types.SearchField, terms []string) (string, error) {
	var quoted []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		quoted = append(quoted, strconv.Quote(t))
	}
	switch len(quoted) {
	case 0:
		return "", &Error{Kind: KindConfig, Err: fmt.Errorf("no valid search terms provided")}
	case 1:
		return fmt.Sprintf("%s:%s", field, quoted[0]), nil
	default:
		return fmt.Sprintf("%s:(%s)", field, strings.Join(quoted, " OR ")), nil
	}
}
