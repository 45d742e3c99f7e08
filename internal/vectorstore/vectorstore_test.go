package vectorstore

import (
	"math"
	"testing"
)

func TestEncodeSparse(t *testing.T) {
	sv := encodeSparse("the cat sat on the mat")
	if len(sv.Indices) != len(sv.Values) {
		t.Fatalf("indices/values length mismatch: %d vs %d", len(sv.Indices), len(sv.Values))
	}
	// "the" appears twice, everything else once
	var sum float32
	var max float32
	for _, v := range sv.Values {
		sum += v
		if v > max {
			max = v
		}
	}
	if sum != 6 {
		t.Errorf("expected total term count 6, got %g", sum)
	}
	if max != 2 {
		t.Errorf("expected max term frequency 2, got %g", max)
	}
	// Indices must be sorted for Qdrant
	for i := 1; i < len(sv.Indices); i++ {
		if sv.Indices[i-1] >= sv.Indices[i] {
			t.Fatalf("indices not strictly ascending at %d", i)
		}
	}
}

func TestEncodeSparseCaseAndPunctuation(t *testing.T) {
	a := encodeSparse("Hello, World!")
	b := encodeSparse("hello world")
	if len(a.Indices) != len(b.Indices) {
		t.Fatalf("case/punctuation should not change terms: %v vs %v", a.Indices, b.Indices)
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] {
			t.Errorf("index %d differs: %d vs %d", i, a.Indices[i], b.Indices[i])
		}
	}
}

func TestEncodeSparseEmpty(t *testing.T) {
	sv := encodeSparse("  \t ")
	if len(sv.Indices) != 0 {
		t.Errorf("expected no terms for whitespace input, got %v", sv.Indices)
	}
}

func TestNormalizeScores(t *testing.T) {
	hits := []Hit{{Score: 2}, {Score: 6}, {Score: 4}}
	norm := normalizeScores(hits)
	want := []float32{0, 1, 0.5}
	for i := range want {
		if math.Abs(float64(norm[i]-want[i])) > 1e-6 {
			t.Errorf("norm[%d] = %g, want %g", i, norm[i], want[i])
		}
	}
}

func TestNormalizeScoresUniform(t *testing.T) {
	norm := normalizeScores([]Hit{{Score: 3}, {Score: 3}})
	for i, v := range norm {
		if v != 1 {
			t.Errorf("uniform scores should normalize to 1, got norm[%d] = %g", i, v)
		}
	}
}

func TestBlendHits(t *testing.T) {
	keyword := []Hit{
		{ID: "a", Score: 10},
		{ID: "b", Score: 5},
	}
	vector := []Hit{
		{ID: "b", Score: 0.9},
		{ID: "c", Score: 0.1},
	}

	blended := blendHits(keyword, vector, 0.5)
	if len(blended) != 3 {
		t.Fatalf("expected 3 blended hits, got %d", len(blended))
	}
	// b scores on both sides: 0.5*0 + 0.5*1 = 0.5; a: 0.5*1 = 0.5; c: 0
	// Stable sort keeps a before b on the tie.
	if blended[0].ID != "a" || blended[1].ID != "b" || blended[2].ID != "c" {
		t.Errorf("unexpected order: %s, %s, %s", blended[0].ID, blended[1].ID, blended[2].ID)
	}
	if blended[2].Score != 0 {
		t.Errorf("lowest hit should score 0, got %g", blended[2].Score)
	}
}

func TestBlendHitsAlphaExtremes(t *testing.T) {
	keyword := []Hit{{ID: "kw", Score: 1}}
	vector := []Hit{{ID: "vec", Score: 1}}

	pureKeyword := blendHits(keyword, vector, 1)
	if pureKeyword[0].ID != "kw" {
		t.Errorf("alpha=1 should rank keyword hit first, got %s", pureKeyword[0].ID)
	}

	pureVector := blendHits(keyword, vector, 0)
	if pureVector[0].ID != "vec" {
		t.Errorf("alpha=0 should rank vector hit first, got %s", pureVector[0].ID)
	}
}
