package vector

import (
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

func TestPointPayloadRoundTrip(t *testing.T) {
	indexedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPoint(models.Section{
		Content:       "Install the package before anything else.",
		Type:          models.SectionTypeMixed,
		Heading:       "Installation",
		ParentHeading: "Getting Started",
		Level:         2,
		Position:      3,
		CodeSnippet:   "npm install example",
		Language:      "bash",
		SourceURL:     "https://docs.example.com/install",
		BaseURL:       "https://docs.example.com/",
		DocName:       "example",
		Category:      models.CategoryInstallation,
	}, []float32{0.1, 0.2}, "user-1")
	p.IndexedAt = indexedAt

	scored := &qdrant.ScoredPoint{
		Id:      qdrant.NewID(p.ID),
		Score:   0.87,
		Payload: pointPayload(&p),
	}
	hit := hitFromPoint(scored)

	assert.Equal(t, p.ID, hit.ID)
	assert.InDelta(t, 0.87, hit.Score, 1e-6)
	assert.Equal(t, p.Section.Content, hit.Content)
	assert.Equal(t, "Installation", hit.Heading)
	assert.Equal(t, "Getting Started", hit.ParentHeading)
	assert.Equal(t, "npm install example", hit.CodeSnippet)
	assert.Equal(t, "bash", hit.Language)
	assert.Equal(t, "https://docs.example.com/install", hit.SourceURL)
	assert.Equal(t, "https://docs.example.com/", hit.BaseURL)
	assert.Equal(t, "example", hit.DocName)
	assert.Equal(t, models.CategoryInstallation, hit.Category)
	assert.Equal(t, p.Tokens, hit.Tokens)
	assert.True(t, hit.IndexedAt.Equal(indexedAt))
}

func TestHitFromPointEmptyPayload(t *testing.T) {
	hit := hitFromPoint(&qdrant.ScoredPoint{Score: 0.5})
	assert.Equal(t, 0.5, hit.Score)
	assert.Empty(t, hit.Content)
}

func TestNewPointGeneratesUniqueIDs(t *testing.T) {
	s := models.Section{Content: "text"}
	a := NewPoint(s, nil, "")
	b := NewPoint(s, nil, "")
	assert.NotEqual(t, a.ID, b.ID)
}
