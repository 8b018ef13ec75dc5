// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scix

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response is the provider's paginated result envelope.
type Response struct {
	ResponseHeader ResponseHeader `json:"responseHeader"`
	Response       *ResultPage    `json:"response"`

	// Highlighting maps document id → highlighted field → fragments.
	Highlighting map[string]map[string][]string `json:"highlighting"`
}

// ResponseHeader carries Solr status information.
type ResponseHeader struct {
	Status int `json:"status"`
	QTime  int `json:"QTime"`
}

// ResultPage is one page of matching documents.
type ResultPage struct {
	NumFound int   `json:"numFound"`
	Start    int   `json:"start"`
	Docs     []Doc `json:"docs"`
}

// Doc holds the metadata fields of one document. Every field is optional.
type Doc struct {
	ID       FlexString `json:"id"`
	Bibcode  *string    `json:"bibcode"`
	Title    StringList `json:"title"`
	Author   StringList `json:"author"`
	Pubdate  *string    `json:"pubdate"`
	Doctype  *string    `json:"doctype"`
	Property StringList `json:"property"`
	DOI      StringList `json:"doi"`
	Grant    StringList `json:"grant"`
}

// StringList decodes a JSON array of strings, a single string or null.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err != nil {
		return err
	}
	*l = ss
	return nil
}

// FlexString decodes a JSON string or number as a string.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

// decodeResponse parses a 2xx body. Invalid JSON or a missing result
// envelope is KindParse.
func decodeResponse(body []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &Error{Kind: KindParse, Err: fmt.Errorf("parsing search response: %w", err), Body: truncateBody(body)}
	}
	if r.Response == nil {
		return nil, &Error{Kind: KindParse, Err: fmt.Errorf("search response has no result envelope"), Body: truncateBody(body)}
	}
	return &r, nil
}
