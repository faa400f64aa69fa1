package cli

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/search"
	"github.com/matzehuels/clustermap/pkg/viewport"
)

// One terminal cell covers cellW×cellH screen units, so the viewport math
// runs in the same units as a browser canvas.
const (
	cellW = 8.0
	cellH = 18.0
)

type cell struct {
	r     rune
	color string
	bold  bool
}

// grid is a character canvas for one frame of the map.
type grid struct {
	cols, rows int
	cells      []cell
}

func newGrid(cols, rows int) *grid {
	g := &grid{cols: max(cols, 0), rows: max(rows, 0)}
	g.cells = make([]cell, g.cols*g.rows)
	for i := range g.cells {
		g.cells[i].r = ' '
	}
	return g
}

func (g *grid) set(c, r int, ch rune, color string, bold bool) {
	if c < 0 || r < 0 || c >= g.cols || r >= g.rows {
		return
	}
	g.cells[r*g.cols+c] = cell{r: ch, color: color, bold: bold}
}

func (g *grid) text(c, r int, s string, maxW int, color string, bold bool) {
	runes := []rune(s)
	if maxW <= 0 {
		return
	}
	if len(runes) > maxW {
		if maxW == 1 {
			runes = []rune{'…'}
		} else {
			runes = append(runes[:maxW-1], '…')
		}
	}
	for i, ch := range runes {
		g.set(c+i, r, ch, color, bold)
	}
}

// String renders the grid, one styled run per color change.
func (g *grid) String() string {
	styles := map[cell]lipgloss.Style{}
	var b strings.Builder
	for r := 0; r < g.rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		row := g.cells[r*g.cols : (r+1)*g.cols]
		for i := 0; i < len(row); {
			j := i
			var run strings.Builder
			key := cell{color: row[i].color, bold: row[i].bold}
			for j < len(row) && row[j].color == key.color && row[j].bold == key.bold {
				run.WriteRune(row[j].r)
				j++
			}
			if key.color == "" && !key.bold {
				b.WriteString(run.String())
			} else {
				st, ok := styles[key]
				if !ok {
					st = lipgloss.NewStyle().Bold(key.bold)
					if key.color != "" {
						st = st.Foreground(lipgloss.Color(key.color))
					}
					styles[key] = st
				}
				b.WriteString(st.Render(run.String()))
			}
			i = j
		}
	}
	return b.String()
}

// Plain returns the grid without styling.
func (g *grid) Plain() string {
	var b strings.Builder
	for r := 0; r < g.rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for _, c := range g.cells[r*g.cols : (r+1)*g.cols] {
			b.WriteRune(c.r)
		}
	}
	return b.String()
}

// toCell maps a canvas point to a terminal cell through v.
func toCell(v viewport.Viewport, x, y float64) (int, int) {
	p := v.CanvasToScreen(viewport.Point{X: x, Y: y})
	return int(math.Floor(p.X / cellW)), int(math.Floor(p.Y / cellH))
}

// fromCell maps the center of a terminal cell to screen units.
func fromCell(c, r int) viewport.Point {
	return viewport.Point{X: (float64(c) + 0.5) * cellW, Y: (float64(r) + 0.5) * cellH}
}

// drawMap draws g as seen through v into a cols×rows grid.
func drawMap(g *layout.Graph, v viewport.Viewport, cols, rows int, hl *search.Highlight) *grid {
	out := newGrid(cols, rows)
	if g == nil {
		return out
	}
	for _, l := range g.Lines {
		c0, r0 := toCell(v, l.From.X, l.From.Y)
		c1, r1 := toCell(v, l.To.X, l.To.Y)
		ch := '│'
		if l.Kind == layout.LineStack {
			ch = '┊'
		}
		drawLine(out, c0, r0, c1, r1, ch, l.Color)
	}
	for _, b := range g.Boxes {
		drawBox(out, v, b)
	}
	if hl != nil {
		c, r := toCell(v, hl.X, hl.Y)
		out.set(c, r, '◎', string(colorYellow), true)
	}
	return out
}

func drawLine(g *grid, c0, r0, c1, r1 int, ch rune, color string) {
	dc, dr := c1-c0, r1-r0
	steps := max(abs(dc), abs(dr))
	if steps > 4*(g.cols+g.rows) {
		return // far off screen
	}
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		c := c0 + int(math.Round(t*float64(dc)))
		r := r0 + int(math.Round(t*float64(dr)))
		g.set(c, r, ch, color, false)
	}
}

func drawBox(g *grid, v viewport.Viewport, b layout.Box) {
	c0, r0 := toCell(v, b.X, b.Y)
	c1, r1 := toCell(v, b.Right(), b.Bottom())
	if c1 < 0 || r1 < 0 || c0 >= g.cols || r0 >= g.rows {
		return
	}
	bold := b.Kind == layout.KindCluster
	if c1-c0 < 2 {
		g.set(c0, r0, '■', b.Color, bold)
		return
	}
	if r1 <= r0 {
		g.text(c0, r0, "["+boxTitle(b)+"]", c1-c0+1, b.Color, bold)
		return
	}

	for c := c0 + 1; c < c1; c++ {
		g.set(c, r0, '─', b.Color, false)
		g.set(c, r1, '─', b.Color, false)
	}
	for r := r0 + 1; r < r1; r++ {
		g.set(c0, r, '│', b.Color, false)
		g.set(c1, r, '│', b.Color, false)
		for c := c0 + 1; c < c1; c++ {
			g.set(c, r, ' ', "", false)
		}
	}
	g.set(c0, r0, '╭', b.Color, false)
	g.set(c1, r0, '╮', b.Color, false)
	g.set(c0, r1, '╰', b.Color, false)
	g.set(c1, r1, '╯', b.Color, false)

	inner := c1 - c0 - 1
	titleRow := r0 + 1
	if r1-r0 < 2 {
		titleRow = r0
		g.text(c0+1, titleRow, boxTitle(b), inner, b.Color, bold)
		return
	}
	g.text(c0+1, titleRow, boxTitle(b), inner, b.Color, bold)

	lastRow := -1
	for _, row := range b.Rows {
		rc, rr := toCell(v, row.X, row.Y)
		if rr <= titleRow || rr >= r1 || rr == lastRow {
			continue
		}
		lastRow = rr
		label := row.Label
		if row.Badge != "" {
			label += " · " + row.Badge
		}
		start := max(rc, c0+1)
		g.text(start, rr, label, c1-start, "", false)
	}
}

func boxTitle(b layout.Box) string {
	title := b.Label
	switch b.Kind {
	case layout.KindCluster, layout.KindSubcluster:
		marker := "▸ "
		if b.Expanded {
			marker = "▾ "
		}
		title = marker + title
		if len(b.Badges) > 0 {
			title += "  " + strings.Join(b.Badges, " · ")
		}
	case layout.KindResults:
		if s := b.Summary; s != nil {
			title += "  " + formatCount(s.Phrases) + " phrases · " + formatCount(s.Impressions) + " impr."
		}
	}
	return title
}

// formatCount shortens large counts: 12400 → "12.4k".
func formatCount(n int64) string {
	round := func(f float64) string { return strconv.FormatFloat(math.Round(f*10)/10, 'f', -1, 64) }
	switch {
	case n >= 1_000_000:
		return round(float64(n)/1_000_000) + "M"
	case n >= 10_000:
		return round(float64(n)/1_000) + "k"
	}
	return strconv.FormatInt(n, 10)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
