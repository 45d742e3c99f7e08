package vectorstore

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	// Vector field names; each collection carries a dense vector for
	// semantic search and a sparse term-frequency vector for keyword search.
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// QdrantStore implements Store using Qdrant
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client.
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantStore(ctx context.Context, url string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the collection with dense and sparse vector
// support if it does not already exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			denseVectorName: {
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			sparseVectorName: {}, // Use default sparse vector config
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// InsertIfAbsent inserts a record unless an identical one already exists.
// The dedup key is exact match on every non-empty text field.
func (s *QdrantStore) InsertIfAbsent(ctx context.Context, collection string, rec Record, vector []float32) (string, bool, error) {
	filter := recordFilter(rec)

	existing, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint32(1)),
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to check for existing record: %w", err)
	}
	if len(existing) > 0 {
		// Already present; do nothing
		return "", false, nil
	}

	id := uuid.New().String()
	sparse := encodeSparse(recordText(rec))

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(id),
		Payload: recordPayload(rec),
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vectors{
				Vectors: &qdrant.NamedVectors{
					Vectors: map[string]*qdrant.Vector{
						denseVectorName: {
							Data: vector,
						},
						sparseVectorName: {
							Indices: &qdrant.SparseIndices{Data: sparse.Indices},
							Data:    sparse.Values,
						},
					},
				},
			},
		},
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to upsert point: %w", err)
	}

	return id, true, nil
}

// SearchNearVector returns the nearest records by dense vector, ascending
// distance.
func (s *QdrantStore) SearchNearVector(ctx context.Context, collection string, vector []float32, limit int) ([]Hit, error) {
	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vector),
		Using:          qdrant.PtrOf(denseVectorName),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]Hit, 0, len(response))
	for _, point := range response {
		hit := pointToHit(point)
		// Cosine similarity back to a distance for the caller
		hit.Distance = 1 - point.Score
		hits = append(hits, hit)
	}

	return hits, nil
}

// SearchKeyword returns records by keyword relevance over the sparse
// term-frequency index, descending score.
func (s *QdrantStore) SearchKeyword(ctx context.Context, collection, query string, limit int) ([]Hit, error) {
	sparse := encodeSparse(query)
	if len(sparse.Indices) == 0 {
		return nil, nil
	}

	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuerySparse(sparse.Indices, sparse.Values),
		Using:          qdrant.PtrOf(sparseVectorName),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to keyword search: %w", err)
	}

	hits := make([]Hit, 0, len(response))
	for _, point := range response {
		hits = append(hits, pointToHit(point))
	}

	return hits, nil
}

// SearchHybrid blends keyword and vector signals per
// score = alpha*keyword_score + (1-alpha)*vector_score. Qdrant has no
// server-side weighted blend, so both searches run and their min-max
// normalized scores are combined client-side.
func (s *QdrantStore) SearchHybrid(ctx context.Context, collection, query string, vector []float32, alpha float64, limit int) ([]Hit, error) {
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha must be within [0,1], got %g", alpha)
	}

	// Over-fetch both sides so the blended cut has candidates to work with
	fetchLimit := limit * 2

	vectorHits, err := s.SearchNearVector(ctx, collection, vector, fetchLimit)
	if err != nil {
		return nil, err
	}
	keywordHits, err := s.SearchKeyword(ctx, collection, query, fetchLimit)
	if err != nil {
		return nil, err
	}

	blended := blendHits(keywordHits, vectorHits, float32(alpha))
	if len(blended) > limit {
		blended = blended[:limit]
	}
	return blended, nil
}

// blendHits merges the two result lists by point id with min-max normalized
// scores, ordered by blended score descending.
func blendHits(keywordHits, vectorHits []Hit, alpha float32) []Hit {
	keywordNorm := normalizeScores(keywordHits)
	vectorNorm := normalizeScores(vectorHits)

	merged := make(map[string]*Hit)
	order := make([]string, 0, len(keywordHits)+len(vectorHits))

	for i, h := range keywordHits {
		hit := h
		hit.Score = alpha * keywordNorm[i]
		merged[h.ID] = &hit
		order = append(order, h.ID)
	}
	for i, h := range vectorHits {
		if existing, ok := merged[h.ID]; ok {
			existing.Score += (1 - alpha) * vectorNorm[i]
			continue
		}
		hit := h
		hit.Score = (1 - alpha) * vectorNorm[i]
		hit.Distance = 0
		merged[h.ID] = &hit
		order = append(order, h.ID)
	}

	result := make([]Hit, 0, len(order))
	for _, id := range order {
		result = append(result, *merged[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}

// normalizeScores min-max normalizes retrieval scores to [0,1] so keyword
// and vector scales are comparable. A single hit normalizes to 1.
func normalizeScores(hits []Hit) []float32 {
	if len(hits) == 0 {
		return nil
	}

	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < minScore {
			minScore = h.Score
		}
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	norm := make([]float32, len(hits))
	if maxScore == minScore {
		for i := range norm {
			norm[i] = 1
		}
		return norm
	}
	for i, h := range hits {
		norm[i] = (h.Score - minScore) / (maxScore - minScore)
	}
	return norm
}

func recordFilter(rec Record) *qdrant.Filter {
	var must []*qdrant.Condition
	if rec.Question != "" {
		must = append(must, qdrant.NewMatch("question", rec.Question))
	}
	if rec.Answer != "" {
		must = append(must, qdrant.NewMatch("answer", rec.Answer))
	}
	if rec.Part != "" {
		must = append(must, qdrant.NewMatch("part", rec.Part))
	}
	return &qdrant.Filter{Must: must}
}

func recordPayload(rec Record) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value)
	if rec.Question != "" {
		payload["question"] = qdrant.NewValueString(rec.Question)
	}
	if rec.Answer != "" {
		payload["answer"] = qdrant.NewValueString(rec.Answer)
	}
	if rec.Part != "" {
		payload["part"] = qdrant.NewValueString(rec.Part)
	}
	return payload
}

// recordText is the text embedded into the sparse keyword index.
func recordText(rec Record) string {
	if rec.Part != "" {
		return rec.Part
	}
	return rec.Question + "\n" + rec.Answer
}

func pointToHit(point *qdrant.ScoredPoint) Hit {
	hit := Hit{
		ID:    point.Id.GetUuid(),
		Score: point.Score,
	}
	if payload := point.Payload; payload != nil {
		if v, ok := payload["question"]; ok {
			hit.Question = v.GetStringValue()
		}
		if v, ok := payload["answer"]; ok {
			hit.Answer = v.GetStringValue()
		}
		if v, ok := payload["part"]; ok {
			hit.Part = v.GetStringValue()
		}
	}
	return hit
}

// Ensure QdrantStore implements Store
var _ Store = (*QdrantStore)(nil)
