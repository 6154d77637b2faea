package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/rushteam/hybridrec/core"
)

func sampleRecs() []core.Recommendation {
	return []core.Recommendation{
		{ID: 1, UserID: 7, ItemID: 3, Score: 4.5, Reason: "r"},
		{ID: 2, UserID: 7, ItemID: 1, Score: 3.0, Reason: "r"},
		{ID: 3, UserID: 9, ItemID: 2, Score: 5.0, Reason: "r"},
	}
}

func sampleCatalog() []core.ContentItem {
	return []core.ContentItem{
		{ID: 1, Popularity: 10},
		{ID: 2, Popularity: 30},
		{ID: 3, Popularity: 20},
	}
}

func versions(names ...string) func() string {
	i := 0
	return func() string {
		v := names[i]
		i++
		return v
	}
}

func TestKVSinkReplaceAndRead(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	defer mem.Close()

	sink := NewKVSink(mem, "rec").WithVersion(versions("1", "2"))
	reader := NewKVReader(mem, "rec")

	got, err := reader.ForUser(ctx, 7, 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("ForUser before publish = %v, %v", got, err)
	}

	if err := sink.Replace(ctx, sampleRecs(), sampleCatalog()); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, err = reader.ForUser(ctx, 7, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ItemID != 3 || got[1].ItemID != 1 {
		t.Errorf("ForUser(7) = %+v", got)
	}
	got, _ = reader.ForUser(ctx, 7, 1)
	if len(got) != 1 {
		t.Errorf("limit not applied: %+v", got)
	}

	hotKey, err := reader.HotKey(ctx)
	if err != nil || hotKey != "rec:v1:hot" {
		t.Fatalf("HotKey() = %q, %v", hotKey, err)
	}
	members, _ := mem.ZRange(ctx, hotKey, 0, -1)
	if len(members) != 3 || members[0] != "2" {
		t.Errorf("hot members = %v", members)
	}

	// 第二个版本只包含用户 9，旧版本的 key 应被删除
	if err := sink.Replace(ctx, sampleRecs()[2:], sampleCatalog()); err != nil {
		t.Fatal(err)
	}
	got, _ = reader.ForUser(ctx, 7, 10)
	if len(got) != 0 {
		t.Errorf("user 7 should have no recommendations in v2, got %+v", got)
	}
	for _, k := range mem.Keys() {
		if len(k) > 6 && k[:6] == "rec:v1" {
			t.Errorf("stale key from v1: %s", k)
		}
	}
}

type failingStore struct {
	*MemoryStore
	failBatch bool
}

func (f *failingStore) BatchSet(ctx context.Context, kvs map[string][]byte, ttl ...int) error {
	if f.failBatch {
		return errors.New("boom")
	}
	return f.MemoryStore.BatchSet(ctx, kvs, ttl...)
}

func TestKVSinkFailureKeepsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{MemoryStore: NewMemoryStore()}
	defer fs.Close()

	sink := NewKVSink(fs, "rec").WithVersion(versions("1", "2"))
	if err := sink.Replace(ctx, sampleRecs(), sampleCatalog()); err != nil {
		t.Fatal(err)
	}

	fs.failBatch = true
	err := sink.Replace(ctx, sampleRecs(), sampleCatalog())
	if err == nil {
		t.Fatal("expected staging failure")
	}
	if !core.IsDomainError(err) {
		t.Errorf("expected domain error, got %T", err)
	}

	ver, _ := NewKVReader(fs, "rec").Version(ctx)
	if ver != "v1" {
		t.Errorf("current version = %q, want v1", ver)
	}
	got, _ := NewKVReader(fs, "rec").ForUser(ctx, 9, 10)
	if len(got) != 1 {
		t.Errorf("previous recommendations should stay visible, got %+v", got)
	}
	for _, k := range fs.Keys() {
		if len(k) > 6 && k[:6] == "rec:v2" {
			t.Errorf("staged key should be cleaned up: %s", k)
		}
	}
}

func TestGroupByUser(t *testing.T) {
	users, lists := groupByUser(sampleRecs())
	if len(users) != 2 || users[0] != 7 || users[1] != 9 {
		t.Fatalf("users = %v", users)
	}
	if len(lists[7]) != 2 {
		t.Errorf("lists[7] = %v", lists[7])
	}
	if k := (keyspace{prefix: "p"}).user("v1", 7); k != "p:v1:user:"+strconv.Itoa(7) {
		t.Errorf("user key = %s", k)
	}
}

func TestKVStagedRollbackRestoresPointer(t *testing.T) {
	tests := []struct {
		name     string
		previous bool
		wantVer  string
	}{
		{name: "previous version restored", previous: true, wantVer: "v1"},
		{name: "pointer removed when nothing was published", previous: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := NewMemoryStore()
			defer mem.Close()

			sink := NewKVSink(mem, "rec").WithVersion(versions("1", "2"))
			if tt.previous {
				if err := sink.Replace(ctx, sampleRecs(), sampleCatalog()); err != nil {
					t.Fatal(err)
				}
			} else {
				sink.WithVersion(versions("2"))
			}

			w, err := sink.Stage(ctx, sampleRecs()[2:], sampleCatalog())
			if err != nil {
				t.Fatal(err)
			}
			if err := w.Commit(ctx); err != nil {
				t.Fatal(err)
			}
			if ver, _ := NewKVReader(mem, "rec").Version(ctx); ver != "v2" {
				t.Fatalf("after commit version = %q, want v2", ver)
			}
			if err := w.Rollback(ctx); err != nil {
				t.Fatal(err)
			}

			ver, err := NewKVReader(mem, "rec").Version(ctx)
			if tt.wantVer == "" {
				if !core.IsStoreNotFound(err) {
					t.Errorf("Version() = %q, %v, want not found", ver, err)
				}
			} else if ver != tt.wantVer {
				t.Errorf("Version() = %q, want %q", ver, tt.wantVer)
			}
			for _, k := range mem.Keys() {
				if strings.HasPrefix(k, "rec:v2") {
					t.Errorf("rolled back key still present: %s", k)
				}
			}
		})
	}
}
