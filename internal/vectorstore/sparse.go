package vectorstore

import (
	"hash/fnv"
	"sort"
	"strings"
)

// sparseVector is a term-frequency vector keyed by hashed term, used for
// keyword search against Qdrant's sparse vector index.
type sparseVector struct {
	Indices []uint32
	Values  []float32
}

// encodeSparse converts text into a sparse term-frequency vector. Terms are
// lowercased, stripped of surrounding punctuation, and hashed to indices;
// colliding terms simply accumulate.
func encodeSparse(text string) sparseVector {
	counts := make(map[uint32]float32)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word == "" {
			continue
		}
		counts[hashTerm(word)]++
	}

	sv := sparseVector{
		Indices: make([]uint32, 0, len(counts)),
		Values:  make([]float32, 0, len(counts)),
	}
	for idx := range counts {
		sv.Indices = append(sv.Indices, idx)
	}
	sort.Slice(sv.Indices, func(i, j int) bool { return sv.Indices[i] < sv.Indices[j] })
	for _, idx := range sv.Indices {
		sv.Values = append(sv.Values, counts[idx])
	}
	return sv
}

func hashTerm(term string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(term))
	return h.Sum32()
}
