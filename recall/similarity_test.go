package recall

import (
	"errors"
	"math"
	"testing"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/feature"
	"github.com/rushteam/hybridrec/pkg/matrix"
)

func mustIndex(t *testing.T, ids ...int64) *matrix.Index {
	t.Helper()
	ix, err := matrix.NewIndex(ids)
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func lookup(t *testing.T, m *matrix.Dense, a, b int64) float64 {
	t.Helper()
	v, ok := m.Lookup(a, b)
	if !ok {
		t.Fatalf("Lookup(%d, %d) missing", a, b)
	}
	return v
}

func TestContentModelSimilarity(t *testing.T) {
	catalog := []core.ContentItem{
		{ID: 1, Genre: "Action", Emotions: core.Profile{"joy": 0.8}},
		{ID: 2, Genre: "Action", Emotions: core.Profile{"joy": 0.1}},
		{ID: 3, Genre: "", Emotions: core.Profile{"joy": 0.1}},
	}
	vecs, err := feature.NewBuilder().Build(catalog)
	if err != nil {
		t.Fatal(err)
	}
	sim, err := (&ContentModel{}).Similarity(vecs)
	if err != nil {
		t.Fatal(err)
	}

	if got := lookup(t, sim, 1, 1); got != 1 {
		t.Errorf("self similarity = %v, want 1", got)
	}
	if got, want := lookup(t, sim, 1, 2), 1/math.Sqrt2; math.Abs(got-want) > 1e-12 {
		t.Errorf("sim(1,2) = %v, want %v", got, want)
	}
	if lookup(t, sim, 1, 2) != lookup(t, sim, 2, 1) {
		t.Error("similarity must be symmetric")
	}
	// 3 的向量全零：genre 为空，joy 是最小值，归一化后为 0
	if got := lookup(t, sim, 3, 3); got != 0 {
		t.Errorf("zero vector self similarity = %v, want 0", got)
	}

	if _, err := (&ContentModel{}).Similarity(nil); !errors.Is(err, core.ErrNoContent) {
		t.Errorf("nil vectors error = %v", err)
	}
}

func TestItemBasedCFSimilarity(t *testing.T) {
	catalog := mustIndex(t, 1, 2, 3, 4)

	t.Run("no ratings", func(t *testing.T) {
		sim, err := (&ItemBasedCF{}).Similarity(catalog, core.NewRatingSet(nil))
		if err != nil {
			t.Fatal(err)
		}
		if sim.Rows() != 4 || sim.Cols() != 4 {
			t.Fatalf("shape = %dx%d", sim.Rows(), sim.Cols())
		}
		for _, a := range catalog.IDs() {
			for _, b := range catalog.IDs() {
				if lookup(t, sim, a, b) != 0 {
					t.Fatalf("sim(%d,%d) should be 0", a, b)
				}
			}
		}
	})

	t.Run("ratings", func(t *testing.T) {
		rs := core.NewRatingSet([]core.Rating{
			{UserID: 10, ItemID: 1, Score: 5},
			{UserID: 10, ItemID: 2, Score: 5},
			{UserID: 11, ItemID: 1, Score: 3},
			{UserID: 11, ItemID: 3, Score: 4},
			{UserID: 12, ItemID: 99, Score: 1}, // 不在目录中
		})
		sim, err := (&ItemBasedCF{}).Similarity(catalog, rs)
		if err != nil {
			t.Fatal(err)
		}
		// item1 = [5,3,0], item2 = [5,0,0], item3 = [0,4,0]
		want12 := 25 / (math.Sqrt(34) * 5)
		if got := lookup(t, sim, 1, 2); math.Abs(got-want12) > 1e-12 {
			t.Errorf("sim(1,2) = %v, want %v", got, want12)
		}
		if got := lookup(t, sim, 2, 3); got != 0 {
			t.Errorf("sim(2,3) = %v, want 0", got)
		}
		if got := lookup(t, sim, 4, 4); got != 0 {
			t.Errorf("unrated item self similarity = %v, want 0", got)
		}
		if got := lookup(t, sim, 3, 3); got != 1 {
			t.Errorf("rated item self similarity = %v, want 1", got)
		}
	})
}

func TestHybridizer(t *testing.T) {
	h := &Hybridizer{}
	if h.Alpha(0) != 0 || h.Alpha(1) != DefaultCollaborativeWeight {
		t.Errorf("Alpha() = %v/%v", h.Alpha(0), h.Alpha(1))
	}
	if (&Hybridizer{CollaborativeWeight: 0.5}).Alpha(3) != 0.5 {
		t.Error("custom weight not used")
	}

	ix := mustIndex(t, 1, 2)
	content := matrix.NewDense(ix, ix)
	content.Set(0, 0, 1)
	content.Set(1, 1, 1)
	content.Set(0, 1, 0.5)
	content.Set(1, 0, 0.5)

	// collaborative 使用相反的顺序，Combine 需要先对齐
	rev := mustIndex(t, 2, 1)
	collab := matrix.NewDense(rev, rev)
	collab.Set(0, 1, 1) // (2,1)
	collab.Set(1, 0, 1) // (1,2)

	out, err := h.Combine(content, collab, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := lookup(t, out, 1, 2), 0.7*1+0.3*0.5; math.Abs(got-want) > 1e-12 {
		t.Errorf("hybrid(1,2) = %v, want %v", got, want)
	}
	if got := lookup(t, out, 1, 1); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("hybrid(1,1) = %v, want 0.3", got)
	}

	other := mustIndex(t, 1, 3)
	_, err = h.Combine(content, matrix.NewDense(other, other), 0.7)
	if !errors.Is(err, core.ErrIndexMismatch) {
		t.Fatalf("misaligned Combine() error = %v, want ErrIndexMismatch", err)
	}
}
