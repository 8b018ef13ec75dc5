// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for scix-harvest.
// Covers the persisted ResultSet layout, run manifests and configuration.
package types

import "slices"

// ResultRecord is the persisted unit for one document: the provider's
// highlight fragments plus a normalized source metadata object.
type ResultRecord struct {
	// HighlightedText lists highlight fragments in provider order. Never nil
	// once extracted; an absent highlight block yields an empty list.
	HighlightedText []string `json:"highlighted_text" yaml:"highlighted_text"`

	// Source carries the bibliographic metadata of the document.
	Source SourceMetadata `json:"source" yaml:"source"`
}

// SourceMetadata holds bibliographic fields. Coverage varies per document,
// so every field is optional and serializes as null when absent.
type SourceMetadata struct {
	Bibcode  *string  `json:"bibcode" yaml:"bibcode"`
	Title    []string `json:"title" yaml:"title"`
	Author   []string `json:"author" yaml:"author"`
	Pubdate  *string  `json:"pubdate" yaml:"pubdate"`
	Doctype  *string  `json:"doctype" yaml:"doctype"`
	Property []string `json:"property" yaml:"property"`
	DOI      []string `json:"doi" yaml:"doi"`
	Grant    []string `json:"grant" yaml:"grant"`
}

// Equal reports whether two records carry identical content.
func (r ResultRecord) Equal(o ResultRecord) bool {
	return slices.Equal(r.HighlightedText, o.HighlightedText) && r.Source.Equal(o.Source)
}

// Equal reports whether two metadata objects carry identical values.
// A nil list and an empty list are not distinguished.
func (s SourceMetadata) Equal(o SourceMetadata) bool {
	return eqPtr(s.Bibcode, o.Bibcode) &&
		eqPtr(s.Pubdate, o.Pubdate) &&
		eqPtr(s.Doctype, o.Doctype) &&
		slices.Equal(s.Title, o.Title) &&
		slices.Equal(s.Author, o.Author) &&
		slices.Equal(s.Property, o.Property) &&
		slices.Equal(s.DOI, o.DOI) &&
		slices.Equal(s.Grant, o.Grant)
}

func eqPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ResultSet maps a provider document identifier to its record.
type ResultSet map[string]ResultRecord
