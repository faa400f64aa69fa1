package search

import (
	"sync"
	"time"

	"github.com/matzehuels/clustermap/pkg/schedule"
)

// DefaultDebounce is the quiet period before a query is matched.
const DefaultDebounce = 150 * time.Millisecond

// SearcherOptions configures a Searcher.
type SearcherOptions struct {
	Clock schedule.Clock
	Delay time.Duration
	Limit int
}

// Searcher debounces keystrokes. When the window elapses, the latest query
// runs against the index current at that moment.
type Searcher struct {
	index    func() *Index
	deliver  func(query string, results []Suggestion)
	debounce *schedule.Debouncer
	limit    int

	mu      sync.Mutex
	query   string
	results []Suggestion
}

// NewSearcher creates a searcher. index is called at match time so a
// recomputed layout is always used; deliver may be nil.
func NewSearcher(index func() *Index, deliver func(string, []Suggestion), opts SearcherOptions) *Searcher {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDebounce
	}
	if deliver == nil {
		deliver = func(string, []Suggestion) {}
	}
	return &Searcher{
		index:    index,
		deliver:  deliver,
		debounce: schedule.NewDebouncer(opts.Clock, opts.Delay),
		limit:    opts.Limit,
	}
}

// Type records a new query. A blank query clears the suggestions at once
// and cancels any pending match.
func (s *Searcher) Type(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()

	if IsBlank(query) {
		s.debounce.Cancel()
		s.publish(query, nil)
		return
	}
	s.debounce.Call(func() { s.run(query) })
}

// Flush runs a pending match immediately.
func (s *Searcher) Flush() bool { return s.debounce.Flush() }

// Cancel drops a pending match without touching the delivered results.
func (s *Searcher) Cancel() bool { return s.debounce.Cancel() }

// Pending reports whether a match is waiting for its window.
func (s *Searcher) Pending() bool { return s.debounce.Pending() }

// Query returns the last typed query.
func (s *Searcher) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Results returns the last delivered suggestions.
func (s *Searcher) Results() []Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Refresh re-runs the current query against the current index without
// waiting, for callers whose layout just changed.
func (s *Searcher) Refresh() {
	q := s.Query()
	if IsBlank(q) || s.Pending() {
		return
	}
	s.run(q)
}

func (s *Searcher) run(query string) {
	var ix *Index
	if s.index != nil {
		ix = s.index()
	}
	if ix == nil {
		ix = &Index{}
	}
	s.publish(query, ix.SearchLimit(query, s.limit))
}

func (s *Searcher) publish(query string, results []Suggestion) {
	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
	s.deliver(query, results)
}
