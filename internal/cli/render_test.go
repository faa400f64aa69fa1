package cli

import (
	"testing"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "svg", []string{"svg"}},
		{"multiple formats", "svg,pdf,png", []string{"svg", "pdf", "png"}},
		{"spaces and case", " SVG , png ", []string{"svg", "png"}},
		{"empty entries dropped", "svg,,pdf", []string{"svg", "pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name                  string
		input, output, format string
		multi                 bool
		want                  string
	}{
		{"derived from input", "data/search.yaml", "", "svg", false, "data/search.svg"},
		{"derived from config source", "", "", "png", false, "clustermap.png"},
		{"explicit single", "a.json", "out/map.svg", "svg", false, "out/map.svg"},
		{"explicit multi swaps extension", "a.json", "out/map.svg", "pdf", true, "out/map.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPath(tt.input, tt.output, tt.format, tt.multi); got != tt.want {
				t.Errorf("outputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
