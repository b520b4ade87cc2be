package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/index"
	"github.com/qdrant/go-client/qdrant"
)

// Payload keys used for chunk metadata.
const (
	payloadModel  = "model"
	payloadSource = "source"
	payloadPage   = "page"
	payloadText   = "text"
)

// Config holds Qdrant connection configuration.
type Config struct {
	// URL is the Qdrant server address (e.g., "https://example.qdrant.io:6334").
	URL string

	// CollectionName is the name of the collection holding manual chunks.
	CollectionName string

	// APIKey is optional API key for authentication.
	APIKey string

	// VectorSize is the embedding dimensionality, used when the collection
	// has to be created. 1024 matches bge-m3.
	VectorSize uint64
}

// Gateway implements index.Gateway for Qdrant.
type Gateway struct {
	client         *qdrant.Client
	collectionName string
	logger         *slog.Logger
}

var _ index.Gateway = (*Gateway)(nil)

// New creates a Qdrant-backed gateway and ensures the collection exists.
//
// Returns index.Gateway interface to enforce abstraction.
func New(ctx context.Context, cfg Config) (index.Gateway, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if cfg.VectorSize == 0 {
		cfg.VectorSize = 1024
	}

	host, port, useTLS, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	g := &Gateway{
		client:         client,
		collectionName: cfg.CollectionName,
		logger:         slog.Default().With("component", "qdrant-gateway"),
	}

	if err := g.ensureCollection(ctx, cfg.VectorSize); err != nil {
		client.Close()
		return nil, err
	}

	return g, nil
}

// parseURL extracts host, port, and TLS mode from a Qdrant URL.
func parseURL(raw string) (host string, port int, useTLS bool, err error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host = u.Hostname()
	port = 6334 // default gRPC port
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	return host, port, u.Scheme == "https", nil
}

// ensureCollection creates the chunk collection if it does not exist yet.
func (g *Gateway) ensureCollection(ctx context.Context, vectorSize uint64) error {
	exists, err := g.client.CollectionExists(ctx, g.collectionName)
	if err != nil {
		return fmt.Errorf("%w: %w", index.ErrUnavailable, err)
	}
	if exists {
		return nil
	}

	g.logger.Info("creating qdrant collection", "collection", g.collectionName, "vectorSize", vectorSize)
	err = g.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: g.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", index.ErrUnavailable, err)
	}
	return nil
}

// pointID derives the deterministic Qdrant point ID for a chunk.
// SHA1-based UUIDs keep re-upserts of the same chunk idempotent.
func pointID(chunk *core.DocumentChunk) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunk.Identity())).String()
}

// Upsert implements index.Gateway.
func (g *Gateway) Upsert(ctx context.Context, points []*index.Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, point := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(point.Chunk)),
			Vectors: qdrant.NewVectors(point.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadModel:  point.Chunk.Model,
				payloadSource: point.Chunk.Source,
				payloadPage:   point.Chunk.Page,
				payloadText:   point.Chunk.Text,
			}),
		}
	}

	wait := true
	_, err := g.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: g.collectionName,
		Points:         qdrantPoints,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w: %w", index.ErrUnavailable, err)
	}
	return nil
}

// Query implements index.Gateway.
func (g *Gateway) Query(ctx context.Context, vector []float32, filter index.Filter, k int) ([]*index.Match, error) {
	limit := uint64(k)
	points, err := g.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: g.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w: %w", index.ErrUnavailable, err)
	}

	matches := make([]*index.Match, 0, len(points))
	for _, point := range points {
		chunk := chunkFromPayload(point.Payload)
		if chunk == nil {
			g.logger.Warn("skipping point with incomplete payload", "score", point.Score)
			continue
		}
		matches = append(matches, &index.Match{Chunk: chunk, Score: point.Score})
	}
	return matches, nil
}

// Exists implements index.Gateway.
func (g *Gateway) Exists(ctx context.Context, filter index.Filter) (bool, error) {
	count, err := g.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count implements index.Gateway.
func (g *Gateway) Count(ctx context.Context, filter index.Filter) (int, error) {
	exact := true
	count, err := g.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: g.collectionName,
		Filter:         buildFilter(filter),
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w: %w", index.ErrUnavailable, err)
	}
	return int(count), nil
}

// Scroll implements index.Gateway. It pages through the collection using
// the raw points client so the next-page offset is available.
func (g *Gateway) Scroll(ctx context.Context, filter index.Filter, batchSize int, fn func(chunks []*core.DocumentChunk) error) error {
	if batchSize < 1 {
		batchSize = 1
	}

	limit := uint32(batchSize)
	request := &qdrant.ScrollPoints{
		CollectionName: g.collectionName,
		Filter:         buildFilter(filter),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}

	for {
		response, err := g.client.GetPointsClient().Scroll(ctx, request)
		if err != nil {
			return fmt.Errorf("qdrant scroll: %w: %w", index.ErrUnavailable, err)
		}

		result := response.GetResult()
		if len(result) == 0 {
			return nil
		}

		chunks := make([]*core.DocumentChunk, 0, len(result))
		for _, point := range result {
			if chunk := chunkFromPayload(point.Payload); chunk != nil {
				chunks = append(chunks, chunk)
			}
		}
		if err := fn(chunks); err != nil {
			return err
		}

		next := response.GetNextPageOffset()
		if next == nil {
			return nil
		}
		request.Offset = next
	}
}

// Close implements index.Gateway.
func (g *Gateway) Close() error {
	return g.client.Close()
}

// buildFilter converts an index.Filter to a Qdrant keyword filter.
func buildFilter(filter index.Filter) *qdrant.Filter {
	var conditions []*qdrant.Condition

	if filter.Model != "" {
		conditions = append(conditions, keywordCondition(payloadModel, filter.Model))
	}
	if filter.Source != "" {
		conditions = append(conditions, keywordCondition(payloadSource, filter.Source))
	}

	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}

// keywordCondition creates an exact-match condition for a payload key.
func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   key,
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
			},
		},
	}
}

// chunkFromPayload rebuilds a DocumentChunk from point payload.
// Returns nil if required fields are missing.
func chunkFromPayload(payload map[string]*qdrant.Value) *core.DocumentChunk {
	if payload == nil {
		return nil
	}

	chunk := &core.DocumentChunk{}
	if v, ok := payload[payloadModel]; ok {
		chunk.Model = v.GetStringValue()
	}
	if v, ok := payload[payloadSource]; ok {
		chunk.Source = v.GetStringValue()
	}
	if v, ok := payload[payloadPage]; ok {
		chunk.Page = int(v.GetIntegerValue())
	}
	if v, ok := payload[payloadText]; ok {
		chunk.Text = v.GetStringValue()
	}

	if chunk.Model == "" || chunk.Source == "" || chunk.Page < 1 {
		return nil
	}

	chunk.Id = core.ChunkID(chunk.Model, chunk.Source, chunk.Page)
	return chunk
}
