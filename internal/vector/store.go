// Package vector stores and searches embedded documentation sections in Qdrant.
package vector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// Point is one embedded section ready for upsert. ID is a UUID; points
// are immutable once written.
type Point struct {
	ID        string
	Vector    []float32
	Section   models.Section
	Tokens    int
	IndexedAt time.Time
	IndexedBy string
}

// NewPoint pairs a section and its vector with a fresh point ID.
func NewPoint(s models.Section, vec []float32, indexedBy string) Point {
	return Point{
		ID:        uuid.New().String(),
		Vector:    vec,
		Section:   s,
		Tokens:    s.TokenEstimate(),
		IndexedAt: time.Now().UTC(),
		IndexedBy: indexedBy,
	}
}

// Config holds Qdrant connection settings.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	Dimension  int
}

// Store wraps the Qdrant client for section storage and search.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
	log        *slog.Logger
}

// New connects to Qdrant and ensures the configured collection exists
// with cosine distance at the configured dimension.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", cfg.Dimension)
	}
	if log == nil {
		log = slog.Default()
	}

	clientCfg := &qdrant.Config{Host: cfg.Host, Port: cfg.Port}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
	}
	client, err := qdrant.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &Store{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		log:        log,
	}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	s.log.Info("created vector collection", "collection", s.collection, "dimension", s.dimension)
	return nil
}

// Upsert writes a batch of points, waiting for the write to be applied
// so that a search issued right after returns the new points.
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("point %s dimension mismatch: got %d, want %d",
				p.ID, len(p.Vector), s.dimension)
		}
		qpoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: pointPayload(&p),
		}
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search returns the top scored hits for a query vector.
func (s *Store) Search(ctx context.Context, vector []float32, limit uint64) ([]models.SearchHit, error) {
	if limit == 0 {
		limit = 10
	}
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", s.collection, err)
	}

	hits := make([]models.SearchHit, 0, len(results))
	for _, point := range results {
		hits = append(hits, hitFromPoint(point))
	}
	return hits, nil
}

// DeleteByBaseURL removes every point belonging to one documentation
// site so the site can be re-indexed from scratch.
func (s *Store) DeleteByBaseURL(ctx context.Context, baseURL string) error {
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("base_url", baseURL),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("delete points for %s: %w", baseURL, err)
	}
	s.log.Info("deleted vector points", "base_url", baseURL)
	return nil
}

// Count returns the number of stored points.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", s.collection, err)
	}
	return n, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
