// Package expand holds the expand/collapse state of the cluster tree.
//
// Every mutation is persisted immediately as a JSON blob through a
// [store.Store]. A missing or unreadable blob restores as "everything
// collapsed"; a failed write is logged and the in-memory change stands.
package expand

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/store"
)

const writeTimeout = 2 * time.Second

// State is the persisted shape.
type State struct {
	Clusters    map[string]bool `json:"clusters"`
	Subclusters map[string]bool `json:"subclusters"`
}

// Store owns the expand state. It satisfies layout.ExpandView.
type Store struct {
	mu          sync.RWMutex
	clusters    map[string]bool
	subclusters map[string]bool

	backend store.Store
	key     string
	logger  *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// New creates an all-collapsed store. A nil backend disables persistence.
func New(backend store.Store, opts ...Option) *Store {
	if backend == nil {
		backend = store.NewNullStore()
	}
	s := &Store{
		clusters:    make(map[string]bool),
		subclusters: make(map[string]bool),
		backend:     backend,
		key:         store.KeyExpand,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted one. It reports
// whether a valid blob was found; otherwise everything is collapsed.
func (s *Store) Load(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clusters = make(map[string]bool)
	s.subclusters = make(map[string]bool)

	data, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		s.logger.Warn("expand state unavailable, starting collapsed", "err", err)
		return false
	}
	if !ok {
		return false
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("expand state corrupt, starting collapsed", "err", err)
		return false
	}
	for id, v := range st.Clusters {
		if v {
			s.clusters[id] = true
		}
	}
	for id, v := range st.Subclusters {
		if v {
			s.subclusters[id] = true
		}
	}
	return true
}

// ClusterExpanded reports whether a cluster is expanded.
func (s *Store) ClusterExpanded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clusters[id]
}

// SubclusterExpanded reports whether a subcluster's own flag is set. Use
// [Store.Visible] to decide whether its children render.
func (s *Store) SubclusterExpanded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subclusters[id]
}

// Visible reports whether a subcluster's child boxes render: both the
// subcluster and its owning cluster must be expanded.
func (s *Store) Visible(subclusterID, clusterID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subclusters[subclusterID] && s.clusters[clusterID]
}

// SetCluster sets a cluster flag.
func (s *Store) SetCluster(id string, expanded bool) {
	s.mutate(func() { set(s.clusters, id, expanded) })
}

// SetSubcluster sets a subcluster flag.
func (s *Store) SetSubcluster(id string, expanded bool) {
	s.mutate(func() { set(s.subclusters, id, expanded) })
}

// ToggleCluster flips a cluster flag and returns the new value.
func (s *Store) ToggleCluster(id string) bool {
	var v bool
	s.mutate(func() {
		v = !s.clusters[id]
		set(s.clusters, id, v)
	})
	return v
}

// ToggleSubcluster flips a subcluster flag and returns the new value.
func (s *Store) ToggleSubcluster(id string) bool {
	var v bool
	s.mutate(func() {
		v = !s.subclusters[id]
		set(s.subclusters, id, v)
	})
	return v
}

// ExpandAll expands every cluster and subcluster of ds.
func (s *Store) ExpandAll(ds *model.Dataset) {
	s.mutate(func() {
		for _, c := range ds.Clusters {
			s.clusters[c.ID] = true
			for _, t := range c.Types {
				s.subclusters[t.ID] = true
			}
		}
	})
}

// CollapseAll clears every flag.
func (s *Store) CollapseAll() {
	s.mutate(func() {
		s.clusters = make(map[string]bool)
		s.subclusters = make(map[string]bool)
	})
}

// Prune drops flags for ids no longer present in ds and returns how many
// were removed. Nothing is persisted when nothing changed.
func (s *Store) Prune(ds *model.Dataset) int {
	clusters := make(map[string]bool, len(ds.Clusters))
	subs := make(map[string]bool)
	for _, c := range ds.Clusters {
		clusters[c.ID] = true
		for _, t := range c.Types {
			subs[t.ID] = true
		}
	}

	s.mu.Lock()
	removed := 0
	for id := range s.clusters {
		if !clusters[id] {
			delete(s.clusters, id)
			removed++
		}
	}
	for id := range s.subclusters {
		if !subs[id] {
			delete(s.subclusters, id)
			removed++
		}
	}
	if removed > 0 {
		s.persistLocked()
	}
	s.mu.Unlock()
	return removed
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := State{
		Clusters:    make(map[string]bool, len(s.clusters)),
		Subclusters: make(map[string]bool, len(s.subclusters)),
	}
	for id := range s.clusters {
		st.Clusters[id] = true
	}
	for id := range s.subclusters {
		st.Subclusters[id] = true
	}
	return st
}

func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.persistLocked()
}

func (s *Store) persistLocked() {
	data, err := json.Marshal(s.snapshotLocked())
	if err != nil {
		s.logger.Error("encode expand state", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		s.logger.Warn("persist expand state", "err", err)
	}
}

// set stores only true flags so the blob stays small.
func set(m map[string]bool, id string, v bool) {
	if v {
		m[id] = true
	} else {
		delete(m, id)
	}
}
