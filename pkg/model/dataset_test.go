package model

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/clustermap/pkg/errors"
)

const datasetJSON = `{
	"clusters": [
		{"id": "c1", "name": "Tours", "types": [{"id": "s1", "name": "Beach"}, {"id": "s2", "name": "Mountain"}]}
	],
	"configs": [{"subclusterId": "s1", "models": ["m1", "m2", "gone"], "filters": ["f1"]}],
	"searchModels": [{"id": "m1", "name": "city + beach"}, {"id": "m2", "name": "beach + tours"}],
	"filters": [{"id": "f1", "name": "stop words", "items": ["free", "cheap"]}],
	"stats": {"s1": {"queriesCount": 400, "filteredCount": 120, "totalImpressions": 5000}},
	"results": {"s1": {"queries": [{"query": "beach tours", "count": 900}], "filteredCount": 120, "totalImpressions": 5000}}
}`

func TestDatasetJSON(t *testing.T) {
	var ds Dataset
	if err := json.Unmarshal([]byte(datasetJSON), &ds); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(ds.Clusters) != 1 || len(ds.Clusters[0].Types) != 2 {
		t.Fatalf("clusters = %+v", ds.Clusters)
	}
	if got := ds.SubclusterCount(); got != 2 {
		t.Errorf("SubclusterCount() = %d, want 2", got)
	}
	if len(ds.SearchModels) != 2 || len(ds.Filters) != 1 {
		t.Errorf("catalogue = %d models, %d filters", len(ds.SearchModels), len(ds.Filters))
	}
	if s, ok := ds.StatsFor("s1"); !ok || s.FilteredCount != 120 {
		t.Errorf("StatsFor(s1) = %+v, %v", s, ok)
	}
	if r, ok := ds.ResultsFor("s1"); !ok || len(r.Queries) != 1 {
		t.Errorf("ResultsFor(s1) = %+v, %v", r, ok)
	}
	if _, ok := ds.StatsFor("s2"); ok {
		t.Error("StatsFor(s2) should be missing")
	}
}

func TestDatasetYAML(t *testing.T) {
	input := `
clusters:
  - id: c1
    name: Tours
    types:
      - id: s1
        name: Beach
configs:
  - subclusterId: s1
    models: [m1]
    filters: []
searchModels:
  - id: m1
    name: city + beach
`
	var ds Dataset
	if err := yaml.Unmarshal([]byte(input), &ds); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := ds.Model("m1"); !ok {
		t.Error("inline catalogue should resolve m1")
	}
	if got := ds.ConfigFor("s1").Models; len(got) != 1 {
		t.Errorf("ConfigFor(s1).Models = %v", got)
	}
}

func TestCatalogueResolution(t *testing.T) {
	var ds Dataset
	if err := json.Unmarshal([]byte(datasetJSON), &ds); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		lookup func() bool
		want   bool
	}{
		{"model present", func() bool { _, ok := ds.Model("m1"); return ok }, true},
		{"model dangling", func() bool { _, ok := ds.Model("gone"); return ok }, false},
		{"filter present", func() bool { _, ok := ds.Filter("f1"); return ok }, true},
		{"filter dangling", func() bool { _, ok := ds.Filter("f9"); return ok }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.lookup(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	f, _ := ds.Filter("f1")
	if len(f.Items) != 2 {
		t.Errorf("filter items = %v", f.Items)
	}
}

func TestConfigFor(t *testing.T) {
	ds := Dataset{Configs: []Config{{SubclusterID: "s1", Models: []string{"m1"}}}}

	if c := ds.ConfigFor("s1"); !c.HasReferences() {
		t.Error("s1 config should have references")
	}
	c := ds.ConfigFor("missing")
	if c.SubclusterID != "missing" || c.HasReferences() {
		t.Errorf("ConfigFor(missing) = %+v, want empty config", c)
	}

	ds.Configs = append(ds.Configs, Config{SubclusterID: "s2", Filters: []string{"f1"}})
	ds.Reindex()
	if !ds.ConfigFor("s2").HasReferences() {
		t.Error("Reindex should rebuild configs")
	}
}

func TestPrepareIsIdempotent(t *testing.T) {
	ds := Dataset{
		Configs:   []Config{{SubclusterID: "s1", Models: []string{"m1"}}},
		Catalogue: Catalogue{SearchModels: []SearchModel{{ID: "m1"}}},
	}
	if ds.Prepared() {
		t.Fatal("fresh dataset should not be prepared")
	}
	ds.Prepare()
	if !ds.Prepared() {
		t.Fatal("Prepare should build every index")
	}

	// A second Prepare keeps the existing indexes instead of rebuilding them.
	ds.Configs = append(ds.Configs, Config{SubclusterID: "s2", Models: []string{"m1"}})
	ds.Prepare()
	if ds.ConfigFor("s2").HasReferences() {
		t.Error("Prepare on a prepared dataset should not reindex")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		ds      Dataset
		wantErr bool
	}{
		{"empty dataset", Dataset{}, false},
		{"valid", Dataset{Clusters: []Cluster{{ID: "c1", Types: []Type{{ID: "s1"}}}, {ID: "c2"}}}, false},
		{"empty cluster id", Dataset{Clusters: []Cluster{{Name: "x"}}}, true},
		{"duplicate cluster", Dataset{Clusters: []Cluster{{ID: "c1"}, {ID: "c1"}}}, true},
		{"empty subcluster id", Dataset{Clusters: []Cluster{{ID: "c1", Types: []Type{{Name: "x"}}}}}, true},
		{"duplicate subcluster across clusters", Dataset{Clusters: []Cluster{
			{ID: "c1", Types: []Type{{ID: "s1"}}},
			{ID: "c2", Types: []Type{{ID: "s1"}}},
		}}, true},
		{"dangling refs are fine", Dataset{
			Clusters: []Cluster{{ID: "c1", Types: []Type{{ID: "s1"}}}},
			Configs:  []Config{{SubclusterID: "s1", Models: []string{"nope"}}},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ds.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidDataset) {
				t.Errorf("code = %v, want INVALID_DATASET", errors.GetCode(err))
			}
		})
	}
}
