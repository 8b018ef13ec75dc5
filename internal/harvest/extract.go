// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"sort"

	"github.com/pdiddy/scix-harvest/internal/scix"
	"github.com/pdiddy/scix-harvest/pkg/types"
)

// docID returns the provider identifier of doc, falling back to the bibcode
// when the id field is absent. It returns "" when neither is present.
func docID(doc scix.Doc) string {
	if doc.ID != "" {
		return string(doc.ID)
	}
	if doc.Bibcode != nil {
		return *doc.Bibcode
	}
	return ""
}

// extractRecord builds the persisted record for doc. Highlight fragments of
// primary come first, followed by any other highlighted fields in name
// order. Missing highlights and missing metadata are never errors.
func extractRecord(doc scix.Doc, highlights map[string][]string, primary string) types.ResultRecord {
	return types.ResultRecord{
		HighlightedText: flattenHighlights(highlights, primary),
		Source: types.SourceMetadata{
			Bibcode:  doc.Bibcode,
			Title:    doc.Title,
			Author:   doc.Author,
			Pubdate:  doc.Pubdate,
			Doctype:  doc.Doctype,
			Property: doc.Property,
			DOI:      doc.DOI,
			Grant:    doc.Grant,
		},
	}
}

func flattenHighlights(highlights map[string][]string, primary string) []string {
	out := []string{}
	out = append(out, highlights[primary]...)

	var rest []string
	for field := range highlights {
		if field != primary {
			rest = append(rest, field)
		}
	}
	sort.Strings(rest)
	for _, field := range rest {
		out = append(out, highlights[field]...)
	}
	return out
}
