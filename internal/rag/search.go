package rag

import (
	"math"
	"sort"

	"github.com/torfjord/skald/internal/db"
	"github.com/torfjord/skald/internal/db/vec"
)

// SearchResult is one ranked fragment.
type SearchResult struct {
	FragmentID int64
	FileID     int64
	ChunkIndex int
	Content    string
	Score      float64
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|). Empty, size-mismatched or
// zero-magnitude inputs yield exactly 0.0; the result is never NaN.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindMostRelevantChunks scores every stored fragment against the query
// vector and returns at most limit results with score >= minRelevance, best
// first, ties broken by ascending fragment id. Fragments whose stored
// embedding is malformed or of a different dimensionality are skipped, never
// matched.
func (c *Conf) FindMostRelevantChunks(queryVector []float32, limit int, minRelevance float64) ([]SearchResult, error) {
	if limit <= 0 || len(queryVector) == 0 {
		return nil, nil
	}

	fragments, err := c.Dao.ListFragments(c.Ctx)
	if err != nil {
		return nil, err
	}

	return rank(fragments, queryVector, limit, minRelevance), nil
}

func rank(fragments []db.Fragment, queryVector []float32, limit int, minRelevance float64) []SearchResult {
	if limit <= 0 || len(queryVector) == 0 {
		return nil
	}

	var results []SearchResult
	for _, frag := range fragments {
		embedding, err := vec.DecodeFloat32s(frag.Embedding)
		if err != nil || len(embedding) == 0 || len(embedding) != len(queryVector) {
			continue
		}

		score := CosineSimilarity(queryVector, embedding)
		if score < minRelevance {
			continue
		}

		results = append(results, SearchResult{
			FragmentID: frag.ID,
			FileID:     frag.FileID,
			ChunkIndex: frag.ChunkIndex,
			Content:    frag.Content,
			Score:      score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].FragmentID < results[j].FragmentID
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results
}
