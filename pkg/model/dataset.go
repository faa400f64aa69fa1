package model

import (
	"github.com/matzehuels/clustermap/pkg/errors"
)

// Catalogue holds the model and filter collections used to resolve the ids
// referenced by configs.
type Catalogue struct {
	SearchModels []SearchModel `json:"searchModels" yaml:"searchModels" bson:"searchModels"`
	Filters      []Filter      `json:"filters" yaml:"filters" bson:"filters"`

	models  map[string]int
	filters map[string]int
}

// Model resolves a search model id. The second result is false for a
// dangling reference.
func (c *Catalogue) Model(id string) (SearchModel, bool) {
	if c.models == nil {
		c.index()
	}
	i, ok := c.models[id]
	if !ok {
		return SearchModel{}, false
	}
	return c.SearchModels[i], true
}

// Filter resolves a filter id. The second result is false for a dangling
// reference.
func (c *Catalogue) Filter(id string) (Filter, bool) {
	if c.filters == nil {
		c.index()
	}
	i, ok := c.filters[id]
	if !ok {
		return Filter{}, false
	}
	return c.Filters[i], true
}

// Reindex rebuilds the lookup tables after the slices were replaced.
func (c *Catalogue) Reindex() { c.index() }

func (c *Catalogue) indexed() bool { return c.models != nil && c.filters != nil }

func (c *Catalogue) index() {
	c.models = make(map[string]int, len(c.SearchModels))
	for i, m := range c.SearchModels {
		if _, dup := c.models[m.ID]; !dup {
			c.models[m.ID] = i
		}
	}
	c.filters = make(map[string]int, len(c.Filters))
	for i, f := range c.Filters {
		if _, dup := c.filters[f.ID]; !dup {
			c.filters[f.ID] = i
		}
	}
}

// Dataset is the complete input of one layout pass.
type Dataset struct {
	Clusters []Cluster `json:"clusters" yaml:"clusters"`
	Configs  []Config  `json:"configs" yaml:"configs"`
	Catalogue `yaml:",inline"`
	Stats    map[string]Stats        `json:"stats,omitempty" yaml:"stats,omitempty"`
	Results  map[string]ResultSample `json:"results,omitempty" yaml:"results,omitempty"`

	configs map[string]int
}

// ConfigFor returns the config of a subcluster, or an empty config when the
// subcluster has none.
func (d *Dataset) ConfigFor(subclusterID string) Config {
	if d.configs == nil {
		d.indexConfigs()
	}
	if i, ok := d.configs[subclusterID]; ok {
		return d.Configs[i]
	}
	return Config{SubclusterID: subclusterID}
}

// StatsFor returns the stats snapshot of a subcluster, if any.
func (d *Dataset) StatsFor(subclusterID string) (Stats, bool) {
	s, ok := d.Stats[subclusterID]
	return s, ok
}

// ResultsFor returns the result sample of a subcluster, if any.
func (d *Dataset) ResultsFor(subclusterID string) (ResultSample, bool) {
	r, ok := d.Results[subclusterID]
	return r, ok
}

// SubclusterCount returns the number of subclusters across all clusters.
func (d *Dataset) SubclusterCount() int {
	n := 0
	for _, c := range d.Clusters {
		n += len(c.Types)
	}
	return n
}

// Validate reports structural problems that make the tree unusable: empty
// ids and duplicate cluster or subcluster ids. Dangling model and filter
// references are not validation errors.
func (d *Dataset) Validate() error {
	clusters := make(map[string]bool, len(d.Clusters))
	subs := make(map[string]bool)
	for i, c := range d.Clusters {
		if c.ID == "" {
			return errors.New(errors.ErrCodeInvalidDataset, "cluster at index %d has an empty id", i)
		}
		if clusters[c.ID] {
			return errors.New(errors.ErrCodeInvalidDataset, "duplicate cluster id %q", c.ID)
		}
		clusters[c.ID] = true
		for j, t := range c.Types {
			if t.ID == "" {
				return errors.New(errors.ErrCodeInvalidDataset, "subcluster %d of cluster %q has an empty id", j, c.ID)
			}
			if subs[t.ID] {
				return errors.New(errors.ErrCodeInvalidDataset, "duplicate subcluster id %q", t.ID)
			}
			subs[t.ID] = true
		}
	}
	return nil
}

func (d *Dataset) indexConfigs() {
	d.configs = make(map[string]int, len(d.Configs))
	for i, c := range d.Configs {
		d.configs[c.SubclusterID] = i
	}
}

// Prepare builds all lookup indexes eagerly unless they already exist.
// Afterwards the lookups are safe for concurrent readers, and further Prepare
// calls do not write, so a prepared dataset may be shared between sessions.
func (d *Dataset) Prepare() {
	if d.Prepared() {
		return
	}
	d.Reindex()
}

// Prepared reports whether every lookup index has been built.
func (d *Dataset) Prepared() bool {
	return d.configs != nil && d.Catalogue.indexed()
}

// Reindex rebuilds every lookup index after the slices were mutated. It must
// not run while other goroutines read the dataset.
func (d *Dataset) Reindex() {
	d.indexConfigs()
	d.Catalogue.Reindex()
}
