package models

import "time"

// SectionType classifies what a section's content consists of.
type SectionType string

const (
	SectionTypeSection SectionType = "section" // prose only
	SectionTypeCode    SectionType = "code"    // a code block with minimal prose
	SectionTypeMixed   SectionType = "mixed"   // prose plus at least one code block
)

// SectionCategory is a coarse topical bucket assigned during extraction.
type SectionCategory string

const (
	CategoryInstallation    SectionCategory = "installation"
	CategoryConfiguration   SectionCategory = "configuration"
	CategoryAPIReference    SectionCategory = "api-reference"
	CategoryGuide           SectionCategory = "guide"
	CategoryTroubleshooting SectionCategory = "troubleshooting"
	CategoryGeneral         SectionCategory = "general"
)

// Section is one extracted unit of documentation content, scoped to a
// heading on a single page. Sections are the unit of embedding and search.
type Section struct {
	Content       string          `json:"content"` // full text: heading + body + code
	Type          SectionType     `json:"type"`
	Heading       string          `json:"heading"`
	ParentHeading string          `json:"parent_heading,omitempty"`
	Level         int             `json:"level"`    // heading level 1-6
	Position      int             `json:"position"` // order within the page
	CodeSnippet   string          `json:"code_snippet,omitempty"`
	Language      string          `json:"language,omitempty"`
	SourceURL     string          `json:"source_url"`
	BaseURL       string          `json:"base_url"`
	DocName       string          `json:"doc_name"`
	Category      SectionCategory `json:"category"`
	Important     bool            `json:"important"`
}

// HasCode reports whether the section carries a code block.
func (s *Section) HasCode() bool {
	return s.CodeSnippet != ""
}

// TokenEstimate approximates the token count of the section's content.
// Uses the common chars/4 heuristic rather than a tokenizer round-trip.
func (s *Section) TokenEstimate() int {
	return len(s.Content) / 4
}

// SearchHit is a scored section returned from vector search.
type SearchHit struct {
	ID            string          `json:"id"`
	Score         float64         `json:"score"`
	Content       string          `json:"content"`
	Heading       string          `json:"heading"`
	ParentHeading string          `json:"parent_heading,omitempty"`
	CodeSnippet   string          `json:"code_snippet,omitempty"`
	Language      string          `json:"language,omitempty"`
	SourceURL     string          `json:"source_url"`
	BaseURL       string          `json:"base_url"`
	DocName       string          `json:"doc_name"`
	Category      SectionCategory `json:"category"`
	Tokens        int             `json:"tokens"`
	IndexedAt     time.Time       `json:"indexed_at"`
}
