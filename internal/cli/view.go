package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/clustermap/pkg/layout"
	"github.com/matzehuels/clustermap/pkg/mapview"
	"github.com/matzehuels/clustermap/pkg/model"
	"github.com/matzehuels/clustermap/pkg/schedule"
	"github.com/matzehuels/clustermap/pkg/search"
	"github.com/matzehuels/clustermap/pkg/viewport"
)

// panStep is how far one arrow key moves the map, in cells.
const panStep = 4

// viewCommand opens the interactive terminal map viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		watch   bool
		noState bool
	)

	cmd := &cobra.Command{
		Use:   "view [dataset]",
		Short: "Browse the map in the terminal",
		Long: `Browse the map in the terminal.

  arrows/hjkl  pan            drag     pan
  + / -        zoom           wheel    zoom at cursor
  space        toggle branch  click    toggle branch
  e / c        expand/collapse all
  f            fit            0        reset zoom
  /            search         enter    teleport to result
  q            quit

The viewport and expand state persist between runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), firstArg(args), watch, noState)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload the dataset file when it changes")
	cmd.Flags().BoolVar(&noState, "no-state", false, "do not persist viewport and expand state")
	return cmd
}

func (c *CLI) runView(ctx context.Context, input string, watch, noState bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	ds, err := c.loadDataset(ctx, input)
	if err != nil {
		return err
	}
	st, err := c.openStore(noState)
	if err != nil {
		return err
	}
	defer st.Close()

	events := newInbox()
	opts := cfg.SessionOptions(st, c.Logger)
	opts.OnSuggestions = func(q string, res []search.Suggestion) { events.suggest(q, res) }
	opts.OnHighlight = func(*search.Highlight) { events.redraw() }
	sess, err := mapview.New(ds, opts)
	if err != nil {
		return err
	}
	sess.Open(ctx)
	defer sess.Close()

	if watch || cfg.Source.Watch {
		w, err := c.watchDataset(ctx, input, events.reload)
		if err != nil {
			return err
		}
		if w != nil {
			defer w.Close()
		}
	}

	m := newMapModel(ctx, sess, events)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

type (
	suggestionsMsg struct {
		query   string
		results []search.Suggestion
	}
	datasetMsg struct{ ds *model.Dataset }
	redrawMsg  struct{}
	frameMsg   struct{}
)

// inbox carries events from timer and watcher goroutines to the bubbletea
// loop. Each kind holds only its newest value, so a burst of redraws never
// pushes out a reload or the latest suggestions.
type inbox struct {
	suggestions chan suggestionsMsg
	datasets    chan datasetMsg
	redraws     chan redrawMsg
}

func newInbox() *inbox {
	return &inbox{
		suggestions: make(chan suggestionsMsg, 1),
		datasets:    make(chan datasetMsg, 1),
		redraws:     make(chan redrawMsg, 1),
	}
}

func (b *inbox) suggest(query string, results []search.Suggestion) {
	keepLatest(b.suggestions, suggestionsMsg{query: query, results: results})
}

func (b *inbox) reload(ds *model.Dataset) { keepLatest(b.datasets, datasetMsg{ds: ds}) }

func (b *inbox) redraw() { keepLatest(b.redraws, redrawMsg{}) }

// next blocks until an event is ready or done closes. Reloads go first.
func (b *inbox) next(done <-chan struct{}) tea.Msg {
	select {
	case msg := <-b.datasets:
		return msg
	default:
	}
	select {
	case msg := <-b.datasets:
		return msg
	case msg := <-b.suggestions:
		return msg
	case msg := <-b.redraws:
		return msg
	case <-done:
		return nil
	}
}

// keepLatest stores v in the one-slot channel ch, dropping an older value that
// was not consumed yet.
func keepLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// mapModel is the bubbletea model of the terminal viewer. All session
// calls happen on the bubbletea goroutine; timers report back through
// events.
type mapModel struct {
	ctx     context.Context
	sess    *mapview.Session
	events  *inbox
	frames  *schedule.ManualFrames
	pointer *viewport.Pointer

	cols, rows int

	searching bool
	query     string
	results   []search.Suggestion
	cursor    int

	pressed   bool
	dragged   bool
	pressCell [2]int

	status string
}

func newMapModel(ctx context.Context, sess *mapview.Session, events *inbox) *mapModel {
	frames := &schedule.ManualFrames{}
	return &mapModel{
		ctx:     ctx,
		sess:    sess,
		events:  events,
		frames:  frames,
		pointer: sess.NewPointer(frames),
	}
}

func (m *mapModel) Init() tea.Cmd { return m.wait() }

// wait delivers the next asynchronous event as a message.
func (m *mapModel) wait() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg { return m.events.next(m.ctx.Done()) }
}

func (m *mapModel) frame() tea.Cmd {
	if m.frames.Pending() == 0 {
		return nil
	}
	return tea.Tick(schedule.FrameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m *mapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height-1
		m.sess.SetContainer(float64(m.cols)*cellW, float64(max(m.rows, 1))*cellH)
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m, m.searchKey(msg)
		}
		return m, m.mapKey(msg)

	case tea.MouseMsg:
		m.mouse(msg)
		return m, m.frame()

	case frameMsg:
		m.frames.RunFrame()
		return m, m.frame()

	case suggestionsMsg:
		if msg.query == m.query {
			m.results = msg.results
			m.cursor = 0
		}
		return m, m.wait()

	case datasetMsg:
		if err := m.sess.SetDataset(m.ctx, msg.ds); err != nil {
			m.status = "reload failed: " + err.Error()
		} else {
			m.status = fmt.Sprintf("reloaded %d clusters", len(msg.ds.Clusters))
		}
		return m, m.wait()

	case redrawMsg:
		return m, m.wait()
	}
	return m, nil
}

func (m *mapModel) mapKey(msg tea.KeyMsg) tea.Cmd {
	m.status = ""
	step := panStep * cellW
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return tea.Quit
	case "left", "h":
		m.sess.PanBy(step, 0)
	case "right", "l":
		m.sess.PanBy(-step, 0)
	case "up", "k":
		m.sess.PanBy(0, panStep*cellH)
	case "down", "j":
		m.sess.PanBy(0, -panStep*cellH)
	case "+", "=":
		m.sess.ZoomButton(viewport.ButtonFactor)
	case "-", "_":
		m.sess.ZoomButton(1 / viewport.ButtonFactor)
	case "0":
		m.sess.ResetViewport()
	case "f":
		m.sess.Fit()
	case "e":
		m.sess.ExpandAll(m.ctx)
	case "c":
		m.sess.CollapseAll(m.ctx)
	case " ", "enter":
		m.toggleAt(m.cols/2, max(m.rows, 1)/2)
	case "/":
		m.searching = true
		m.query = ""
		m.results = nil
	}
	return nil
}

func (m *mapModel) searchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		m.searching = false
		m.sess.Type("")
		m.results = nil
	case tea.KeyEnter:
		if m.sess.FlushSearch() {
			m.results = m.sess.Suggestions()
			m.cursor = min(m.cursor, max(len(m.results)-1, 0))
		}
		if m.cursor < len(m.results) {
			sg := m.results[m.cursor]
			if _, ok := m.sess.Teleport(m.ctx, sg); ok {
				m.status = fmt.Sprintf("%s %s", strings.ToLower(string(sg.Kind)), sg.Label)
			}
			m.searching = false
		}
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
			m.sess.Type(m.query)
			if m.query == "" {
				m.results = nil
			}
		}
	case tea.KeySpace:
		m.query += " "
		m.sess.Type(m.query)
	case tea.KeyRunes:
		m.query += string(msg.Runes)
		m.sess.Type(m.query)
	}
	return nil
}

func (m *mapModel) mouse(msg tea.MouseMsg) {
	pos := fromCell(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.pointer.Wheel(pos, -100)
	case msg.Button == tea.MouseButtonWheelDown:
		m.pointer.Wheel(pos, 100)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.pressed, m.dragged = true, false
		m.pressCell = [2]int{msg.X, msg.Y}
		m.pointer.DragStart(pos)
	case msg.Action == tea.MouseActionMotion && m.pressed:
		if msg.X != m.pressCell[0] || msg.Y != m.pressCell[1] {
			m.dragged = true
		}
		m.pointer.DragMove(pos)
	case msg.Action == tea.MouseActionRelease && m.pressed:
		m.pointer.DragEnd()
		m.pressed = false
		if !m.dragged {
			m.toggleAt(msg.X, msg.Y)
		}
	}
}

// toggleAt toggles the cluster or subcluster under a terminal cell.
func (m *mapModel) toggleAt(col, row int) {
	p := m.sess.Controller().ScreenToCanvas(fromCell(col, row))
	b, ok := m.sess.Graph().Hit(layout.Point{X: p.X, Y: p.Y})
	if !ok {
		return
	}
	switch b.Kind {
	case layout.KindCluster:
		m.sess.ToggleCluster(m.ctx, b.ID)
	case layout.KindSubcluster:
		m.sess.ToggleSubcluster(m.ctx, b.ID)
	}
}

func (m *mapModel) View() string {
	if m.cols <= 0 || m.rows <= 0 {
		return ""
	}
	var hl *search.Highlight
	if h, ok := m.sess.Highlight(); ok {
		hl = &h
	}
	g := drawMap(m.sess.Graph(), m.sess.Viewport(), m.cols, m.rows, hl)
	if m.searching {
		overlaySearch(g, m.query, m.results, m.cursor)
	}
	return g.String() + "\n" + m.statusLine()
}

func (m *mapModel) statusLine() string {
	v := m.sess.Viewport()
	left := fmt.Sprintf(" %3.0f%%  %.0f,%.0f ", v.Zoom*100, -v.Pan.X, -v.Pan.Y)
	var right string
	switch {
	case m.searching:
		right = "/" + m.query + "▏"
	case m.status != "":
		right = m.status
	default:
		right = "/ search  space toggle  e/c expand/collapse  f fit  q quit"
	}
	return StyleHighlight.Render(left) + StyleDim.Render(right)
}

// overlaySearch draws the suggestion list in the top-left corner.
func overlaySearch(g *grid, query string, results []search.Suggestion, cursor int) {
	width := min(48, g.cols)
	lines := []string{"search: " + query}
	for i, r := range results {
		prefix := "  "
		if i == cursor {
			prefix = "▸ "
		}
		lines = append(lines, fmt.Sprintf("%s%-10s %s", prefix, r.Kind, r.Label))
	}
	if query != "" && len(results) == 0 {
		lines = append(lines, "  no matches")
	}
	for i, line := range lines {
		if i >= g.rows {
			break
		}
		for c := 0; c < width; c++ {
			g.set(c, i, ' ', "", false)
		}
		color, bold := string(colorWhite), false
		if i == 0 || i-1 == cursor {
			color, bold = string(colorCyan), true
		}
		g.text(0, i, line, width, color, bold)
	}
}
