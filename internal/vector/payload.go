package vector

import (
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// pointPayload flattens a Point into Qdrant payload values.
func pointPayload(p *Point) map[string]*qdrant.Value {
	s := &p.Section
	return map[string]*qdrant.Value{
		"content":        qdrant.NewValueString(s.Content),
		"type":           qdrant.NewValueString(string(s.Type)),
		"heading":        qdrant.NewValueString(s.Heading),
		"parent_heading": qdrant.NewValueString(s.ParentHeading),
		"level":          qdrant.NewValueInt(int64(s.Level)),
		"code_snippet":   qdrant.NewValueString(s.CodeSnippet),
		"language":       qdrant.NewValueString(s.Language),
		"source_url":     qdrant.NewValueString(s.SourceURL),
		"base_url":       qdrant.NewValueString(s.BaseURL),
		"position":       qdrant.NewValueInt(int64(s.Position)),
		"doc_name":       qdrant.NewValueString(s.DocName),
		"category":       qdrant.NewValueString(string(s.Category)),
		"tokens":         qdrant.NewValueInt(int64(p.Tokens)),
		"indexed_at":     qdrant.NewValueString(p.IndexedAt.Format(time.RFC3339)),
		"indexed_by":     qdrant.NewValueString(p.IndexedBy),
	}
}

// hitFromPoint rebuilds a SearchHit from a scored Qdrant point.
func hitFromPoint(point *qdrant.ScoredPoint) models.SearchHit {
	hit := models.SearchHit{
		Score: float64(point.Score),
	}
	if point.Id != nil {
		hit.ID = point.Id.GetUuid()
	}
	pl := point.Payload
	if pl == nil {
		return hit
	}

	hit.Content = payloadString(pl, "content")
	hit.Heading = payloadString(pl, "heading")
	hit.ParentHeading = payloadString(pl, "parent_heading")
	hit.CodeSnippet = payloadString(pl, "code_snippet")
	hit.Language = payloadString(pl, "language")
	hit.SourceURL = payloadString(pl, "source_url")
	hit.BaseURL = payloadString(pl, "base_url")
	hit.DocName = payloadString(pl, "doc_name")
	hit.Category = models.SectionCategory(payloadString(pl, "category"))
	hit.Tokens = int(payloadInt(pl, "tokens"))

	if ts := payloadString(pl, "indexed_at"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			hit.IndexedAt = t
		}
	}
	return hit
}

func payloadString(pl map[string]*qdrant.Value, key string) string {
	if v, ok := pl[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func payloadInt(pl map[string]*qdrant.Value, key string) int64 {
	if v, ok := pl[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}
