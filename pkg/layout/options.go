package layout

// DefaultPalette is cycled by cluster index.
var DefaultPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2",
	"#59a14f", "#edc948", "#b07aa1", "#ff9da7",
}

// Options holds the fixed geometry constants. Zero fields take the value
// from [DefaultOptions].
type Options struct {
	Margin            float64
	ClusterGap        float64
	MinSubColumnWidth float64
	ClusterHeight     float64
	LevelGap          float64
	SubclusterHeight  float64
	SubColumnMargin   float64
	StackGap          float64
	MaxBoxWidth       float64
	HeaderHeight      float64
	RowHeight         float64
	BoxPadding        float64
	SummaryHeight     float64
	ResultRowCap      int
	ButtonWidth       float64
	ButtonHeight      float64
	MinCanvasHeight   float64

	ClusterFontSize    float64
	SubclusterFontSize float64
	BadgeFontSize      float64

	Palette []string
}

// DefaultOptions returns the standard geometry.
func DefaultOptions() Options {
	return Options{
		Margin:             40,
		ClusterGap:         40,
		MinSubColumnWidth:  260,
		ClusterHeight:      44,
		LevelGap:           70,
		SubclusterHeight:   52,
		SubColumnMargin:    24,
		StackGap:           28,
		MaxBoxWidth:        236,
		HeaderHeight:       30,
		RowHeight:          22,
		BoxPadding:         12,
		SummaryHeight:      66,
		ResultRowCap:       30,
		ButtonWidth:        96,
		ButtonHeight:       28,
		MinCanvasHeight:    900,
		ClusterFontSize:    16,
		SubclusterFontSize: 14,
		BadgeFontSize:      11,
		Palette:            DefaultPalette,
	}
}

// WithDefaults returns o with every zero field replaced by its default.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	setF := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	setF(&o.Margin, d.Margin)
	setF(&o.ClusterGap, d.ClusterGap)
	setF(&o.MinSubColumnWidth, d.MinSubColumnWidth)
	setF(&o.ClusterHeight, d.ClusterHeight)
	setF(&o.LevelGap, d.LevelGap)
	setF(&o.SubclusterHeight, d.SubclusterHeight)
	setF(&o.SubColumnMargin, d.SubColumnMargin)
	setF(&o.StackGap, d.StackGap)
	setF(&o.MaxBoxWidth, d.MaxBoxWidth)
	setF(&o.HeaderHeight, d.HeaderHeight)
	setF(&o.RowHeight, d.RowHeight)
	setF(&o.BoxPadding, d.BoxPadding)
	setF(&o.SummaryHeight, d.SummaryHeight)
	setF(&o.ButtonWidth, d.ButtonWidth)
	setF(&o.ButtonHeight, d.ButtonHeight)
	setF(&o.MinCanvasHeight, d.MinCanvasHeight)
	setF(&o.ClusterFontSize, d.ClusterFontSize)
	setF(&o.SubclusterFontSize, d.SubclusterFontSize)
	setF(&o.BadgeFontSize, d.BadgeFontSize)
	if o.ResultRowCap <= 0 {
		o.ResultRowCap = d.ResultRowCap
	}
	if len(o.Palette) == 0 {
		o.Palette = d.Palette
	}
	return o
}
