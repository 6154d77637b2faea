package core

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/rushteam/hybridrec/pkg/utils"
)

func TestProfileInput_Resolve(t *testing.T) {
	tests := []struct {
		name string
		in   ProfileInput
		want Profile
	}{
		{
			name: "json text",
			in:   ProfileText(`{"joy": 0.8, "fear": 1}`),
			want: Profile{"joy": 0.8, "fear": 1},
		},
		{
			name: "numeric strings are accepted",
			in:   ProfileText(`{"joy": "0.5"}`),
			want: Profile{"joy": 0.5},
		},
		{
			name: "non numeric values are dropped",
			in:   ProfileText(`{"joy": "lots", "awe": null, "trust": [1]}`),
			want: Profile{},
		},
		{
			name: "malformed json",
			in:   ProfileText(`{"joy": `),
			want: Profile{},
		},
		{
			name: "json array",
			in:   ProfileText(`[1, 2]`),
			want: Profile{},
		},
		{
			name: "empty text",
			in:   ProfileText("  "),
			want: Profile{},
		},
		{
			name: "decoded mapping",
			in:   ProfileMapping(map[string]any{"plot": 4, "acting": 2.5, "flag": true}),
			want: Profile{"plot": 4, "acting": 2.5, "flag": 1},
		},
		{
			name: "missing",
			in:   ProfileInput{},
			want: Profile{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Resolve(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRatingSet(t *testing.T) {
	rs := NewRatingSet([]Rating{
		{UserID: 2, ItemID: 10, Score: 3},
		{UserID: 1, ItemID: 11, Score: 4},
		{UserID: 2, ItemID: 12, Score: 5},
		{UserID: 2, ItemID: 10, Score: 1},
	})

	if got, want := rs.Users(), []int64{2, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("Users() = %v, want %v", got, want)
	}
	want := []Rating{{UserID: 2, ItemID: 10, Score: 1}, {UserID: 2, ItemID: 12, Score: 5}}
	if got := rs.ForUser(2); !reflect.DeepEqual(got, want) {
		t.Errorf("ForUser(2) = %v, want %v", got, want)
	}
	if rs.Len() != 3 {
		t.Errorf("Len() = %d, want 3", rs.Len())
	}
	if rs.Empty() {
		t.Error("Empty() = true")
	}
	if !NewRatingSet(nil).Empty() {
		t.Error("NewRatingSet(nil).Empty() = false")
	}
}

func TestRecommendContext_Rated(t *testing.T) {
	rctx := &RecommendContext{Ratings: []Rating{{ItemID: 5, Score: 4}}}
	if s, ok := rctx.Rated(5); !ok || s != 4 {
		t.Errorf("Rated(5) = %v, %v", s, ok)
	}
	if _, ok := rctx.Rated(6); ok {
		t.Error("Rated(6) ok = true")
	}
}

func TestDomainError_Wrapping(t *testing.T) {
	err := fmt.Errorf("run: %w", ErrNoContent)
	if !errors.Is(err, ErrNoContent) {
		t.Error("errors.Is(wrapped, ErrNoContent) = false")
	}
	if !IsNoData(err) {
		t.Error("IsNoData(wrapped) = false")
	}
	if errors.Is(err, ErrIndexMismatch) {
		t.Error("errors.Is(wrapped, ErrIndexMismatch) = true")
	}

	cause := errors.New("boom")
	wrapped := WrapDomainError(ModuleStore, ErrorCodeUnavailable, "store: write failed", cause)
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is(wrapped, cause) = false")
	}
	if wrapped.Error() != "store: write failed: boom" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestItemLabels(t *testing.T) {
	it := NewItem(1)
	it.PutLabel("recall_source", utils.Label{Value: "catalog", Source: "recall"})
	it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
	it.PutLabel("recall_source", utils.Label{})

	got := it.Labels["recall_source"]
	if got.Value != "catalog|hot" || got.Source != "recall,recall" {
		t.Errorf("merged label = %+v", got)
	}

	it.SetLabel("recall_source", utils.Label{Value: "x"})
	if it.Labels["recall_source"].Value != "x" {
		t.Errorf("SetLabel did not overwrite: %+v", it.Labels["recall_source"])
	}
}

func TestIsUnavailable(t *testing.T) {
	err := fmt.Errorf("read: %w", NewDomainError(ModuleStore, ErrorCodeUnavailable, "down"))
	if !IsUnavailable(err) {
		t.Error("IsUnavailable(wrapped) = false")
	}
	if IsUnavailable(ErrNoContent) {
		t.Error("IsUnavailable(ErrNoContent) = true")
	}
}
