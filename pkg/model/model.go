package model

import "time"

// Cluster is the top level of the classification tree.
type Cluster struct {
	ID    string `json:"id" yaml:"id" bson:"id"`
	Name  string `json:"name" yaml:"name" bson:"name"`
	Types []Type `json:"types" yaml:"types" bson:"types"`
}

// Type is a subcluster as delivered inside its parent cluster.
type Type struct {
	ID   string `json:"id" yaml:"id" bson:"id"`
	Name string `json:"name" yaml:"name" bson:"name"`
}

// Config lists the search models and filters attached to a subcluster, in
// display order.
type Config struct {
	SubclusterID string   `json:"subclusterId" yaml:"subclusterId" bson:"subclusterId"`
	Models       []string `json:"models" yaml:"models" bson:"models"`
	Filters      []string `json:"filters" yaml:"filters" bson:"filters"`
}

// HasReferences reports whether the config references at least one model or
// filter id, resolvable or not.
func (c Config) HasReferences() bool {
	return len(c.Models)+len(c.Filters) > 0
}

// SearchModel is a named search-query generation rule.
type SearchModel struct {
	ID   string `json:"id" yaml:"id" bson:"id"`
	Name string `json:"name" yaml:"name" bson:"name"`
}

// Filter is a named exclusion word list.
type Filter struct {
	ID    string   `json:"id" yaml:"id" bson:"id"`
	Name  string   `json:"name" yaml:"name" bson:"name"`
	Items []string `json:"items" yaml:"items" bson:"items"`
}

// Stats is the batch-processing snapshot for one subcluster.
type Stats struct {
	QueriesCount     int64     `json:"queriesCount" yaml:"queriesCount" bson:"queriesCount"`
	FilteredCount    int64     `json:"filteredCount" yaml:"filteredCount" bson:"filteredCount"`
	TotalImpressions int64     `json:"totalImpressions" yaml:"totalImpressions" bson:"totalImpressions"`
	UpdatedAt        time.Time `json:"updatedAt,omitzero" yaml:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// Query is one sampled search phrase with its impression count.
type Query struct {
	Query string `json:"query" yaml:"query" bson:"query"`
	Count int64  `json:"count" yaml:"count" bson:"count"`
}

// ResultSample is the capped in-memory sample of filtered queries for one
// subcluster.
type ResultSample struct {
	Queries          []Query `json:"queries" yaml:"queries" bson:"queries"`
	FilteredCount    int64   `json:"filteredCount" yaml:"filteredCount" bson:"filteredCount"`
	TotalImpressions int64   `json:"totalImpressions" yaml:"totalImpressions" bson:"totalImpressions"`
}
