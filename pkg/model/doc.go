// Package model defines the read-only data contracts consumed by the map
// layout engine.
//
// Clusters, subclusters (delivered as cluster "types"), their configs, the
// search-model and filter catalogues and the batch statistics are owned by
// external collaborators. A [Dataset] bundles everything one layout pass
// needs; the engine never mutates it.
//
// Field names match the collaborators' JSON documents:
//
//	{
//	  "clusters": [{"id": "c1", "name": "Tours", "types": [{"id": "s1", "name": "Beach"}]}],
//	  "configs":  [{"subclusterId": "s1", "models": ["m1"], "filters": ["f1"]}],
//	  "searchModels": [{"id": "m1", "name": "city + beach"}],
//	  "filters": [{"id": "f1", "name": "stop words", "items": ["free", "cheap"]}],
//	  "stats":   {"s1": {"queriesCount": 400, "filteredCount": 120, "totalImpressions": 5000}},
//	  "results": {"s1": {"queries": [{"query": "beach tours", "count": 900}]}}
//	}
//
// References from a [Config] to models or filters that are missing from the
// [Catalogue] are tolerated: they are resolved with [Catalogue.Model] and
// [Catalogue.Filter], and callers drop the ones that do not resolve.
package model
