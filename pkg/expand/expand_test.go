package expand

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/store"
)

func tree() *model.Dataset {
	return &model.Dataset{Clusters: []model.Cluster{
		{ID: "c1", Types: []model.Type{{ID: "s1"}, {ID: "s2"}}},
		{ID: "c2", Types: []model.Type{{ID: "s3"}}},
	}}
}

func TestPersistsEveryChange(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryStore()
	s := New(backend)

	s.ToggleCluster("c1")
	raw, ok, _ := backend.Get(ctx, store.KeyExpand)
	if !ok {
		t.Fatal("toggle was not persisted")
	}
	if string(raw) != `{"clusters":{"c1":true},"subclusters":{}}` {
		t.Errorf("blob = %s", raw)
	}

	s.SetSubcluster("s1", true)
	reloaded := New(backend)
	if !reloaded.Load(ctx) {
		t.Fatal("Load() = false")
	}
	if !reloaded.ClusterExpanded("c1") || !reloaded.SubclusterExpanded("s1") {
		t.Errorf("reloaded state = %+v", reloaded.Snapshot())
	}
}

func TestToggle(t *testing.T) {
	s := New(nil)
	if !s.ToggleSubcluster("s1") {
		t.Error("first toggle should expand")
	}
	if s.ToggleSubcluster("s1") {
		t.Error("second toggle should collapse")
	}
	if len(s.Snapshot().Subclusters) != 0 {
		t.Error("collapsed ids should not be kept")
	}
}

func TestVisible(t *testing.T) {
	tests := []struct {
		name       string
		cluster    bool
		subcluster bool
		want       bool
	}{
		{"both expanded", true, true, true},
		{"cluster collapsed", false, true, false},
		{"subcluster collapsed", true, false, false},
		{"both collapsed", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil)
			s.SetCluster("c1", tt.cluster)
			s.SetSubcluster("s1", tt.subcluster)
			if got := s.Visible("s1", "c1"); got != tt.want {
				t.Errorf("Visible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFallsBackToCollapsed(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"corrupt json", "{nope"},
		{"wrong shape", `[1,2,3]`},
		{"wrong value types", `{"clusters":{"c1":"yes"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := store.NewMemoryStore()
			_ = backend.Set(ctx, store.KeyExpand, []byte(tt.blob))

			s := New(backend)
			s.SetCluster("stale", true)
			if s.Load(ctx) {
				t.Error("Load() = true for corrupt blob")
			}
			if s.ClusterExpanded("stale") || s.ClusterExpanded("c1") {
				t.Errorf("state not collapsed: %+v", s.Snapshot())
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	s := New(store.NewMemoryStore())
	if s.Load(context.Background()) {
		t.Error("Load() = true with nothing stored")
	}
}

type failingStore struct{ store.NullStore }

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}

func (failingStore) Set(context.Context, string, []byte) error { return errors.New("down") }

func TestBackendFailureDoesNotUndo(t *testing.T) {
	s := New(failingStore{})
	if s.Load(context.Background()) {
		t.Error("Load() = true with failing backend")
	}
	s.SetCluster("c1", true)
	if !s.ClusterExpanded("c1") {
		t.Error("change lost after failed persist")
	}
}

func TestExpandCollapseAll(t *testing.T) {
	ds := tree()
	s := New(nil)
	s.ExpandAll(ds)
	for _, id := range []string{"s1", "s2", "s3"} {
		if !s.SubclusterExpanded(id) {
			t.Errorf("%s not expanded", id)
		}
	}
	if !s.Visible("s3", "c2") {
		t.Error("s3 not visible after ExpandAll")
	}
	s.CollapseAll()
	st := s.Snapshot()
	if len(st.Clusters)+len(st.Subclusters) != 0 {
		t.Errorf("CollapseAll left %+v", st)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryStore()
	s := New(backend)
	s.SetCluster("c1", true)
	s.SetCluster("gone", true)
	s.SetSubcluster("s1", true)
	s.SetSubcluster("old", true)

	if n := s.Prune(tree()); n != 2 {
		t.Errorf("Prune() = %d, want 2", n)
	}
	raw, _, _ := backend.Get(ctx, store.KeyExpand)
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatal(err)
	}
	if st.Clusters["gone"] || st.Subclusters["old"] || !st.Clusters["c1"] {
		t.Errorf("persisted after prune = %+v", st)
	}
	if n := s.Prune(tree()); n != 0 {
		t.Errorf("second Prune() = %d, want 0", n)
	}
}
