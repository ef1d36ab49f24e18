package vectordb

import (
	"math"
	"sort"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

// cosineSimilarity calculates cosine similarity between two vectors.
// Vectors of different dimension score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankTopK scores chunks against query and keeps the best topK.
// Ties fall back to corpus order so equal scores rank deterministically.
func rankTopK(query []float32, chunks []entities.Chunk, topK int) []entities.QueryResult {
	results := make([]entities.QueryResult, len(chunks))
	for i, c := range chunks {
		results[i] = entities.QueryResult{
			Chunk:     c,
			Score:     cosineSimilarity(query, c.Embedding),
			SourceDoc: c.DocumentID,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return corpusLess(results[i].Chunk, results[j].Chunk)
	})

	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// corpusLess orders chunks by document, then by position in the document.
func corpusLess(a, b entities.Chunk) bool {
	if a.DocumentID != b.DocumentID {
		return a.DocumentID < b.DocumentID
	}
	return a.Index < b.Index
}
