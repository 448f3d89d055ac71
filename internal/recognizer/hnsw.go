package recognizer

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-gallery/internal/gallery"
)

// hnswMaxNeighbors is the HNSW M parameter.
const hnswMaxNeighbors = 16

// searchOversample widens the neighbor search so that several embeddings of
// the same person cannot crowd other people out of the candidate set.
const searchOversample = 8

// indexEntry ties an HNSW node back to the person it belongs to.
type indexEntry struct {
	name string
	vec  []float32
}

// Index is an approximate nearest-neighbor index over every embedding in
// the gallery. It trades exactness for speed on large galleries; the exact
// scan remains the default matching path.
type Index struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[int64]
	idToNode map[int64]indexEntry
}

// NewIndex creates a new empty index.
func NewIndex() *Index {
	return &Index{
		idToNode: make(map[int64]indexEntry),
	}
}

// Build replaces the index contents with the given gallery snapshot.
func (ix *Index) Build(snapshot map[string][]gallery.Embedding) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	total := 0
	for _, embeddings := range snapshot {
		total += len(embeddings)
	}
	if total == 0 {
		ix.graph = nil
		ix.idToNode = make(map[int64]indexEntry)
		return
	}

	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	ix.idToNode = make(map[int64]indexEntry, total)
	var id int64
	for name, embeddings := range snapshot {
		for _, emb := range embeddings {
			if len(emb.Vector) == 0 {
				continue
			}
			g.Add(hnsw.MakeNode(id, emb.Vector))
			ix.idToNode[id] = indexEntry{name: name, vec: emb.Vector}
			id++
		}
	}
	ix.graph = g
}

// Count returns the number of indexed embeddings.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.idToNode)
}

// Search returns per-person best-similarity candidates for the query,
// enough to fill a top-k ranking. Scores are exact cosine similarities
// recomputed from the stored vectors; only the neighbor selection is
// approximate.
func (ix *Index) Search(query []float32, k int) []Match {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.graph == nil {
		return nil
	}

	limit := k * searchOversample
	if limit > len(ix.idToNode) {
		limit = len(ix.idToNode)
	}
	neighbors := ix.graph.Search(query, limit)

	best := make(map[string]float64)
	order := make([]string, 0, k)
	for _, n := range neighbors {
		entry, ok := ix.idToNode[n.Key]
		if !ok {
			continue
		}
		score := gallery.CosineSimilarity(query, entry.vec)
		if prev, seen := best[entry.name]; !seen {
			best[entry.name] = score
			order = append(order, entry.name)
		} else if score > prev {
			best[entry.name] = score
		}
	}

	matches := make([]Match, 0, len(order))
	for _, name := range order {
		matches = append(matches, Match{Name: name, Score: best[name]})
	}
	return matches
}
