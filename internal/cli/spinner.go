package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

const spinnerTick = 80 * time.Millisecond

// spinner animates msg on one line of w until stopped or until ctx ends.
type spinner struct {
	w   io.Writer
	msg string

	quit     chan struct{}
	finished chan struct{}
	once     sync.Once

	mu        sync.Mutex
	cancelled bool
}

// startSpinner draws msg on w with a spinning prefix.
func startSpinner(ctx context.Context, w io.Writer, msg string) *spinner {
	s := &spinner{w: w, msg: msg, quit: make(chan struct{}), finished: make(chan struct{})}
	go s.run(ctx)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.finished)
	t := time.NewTicker(spinnerTick)
	defer t.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			s.mu.Lock()
			s.cancelled = true
			s.mu.Unlock()
			s.clear()
			return
		case <-t.C:
			frame := string(spinnerFrames[i%len(spinnerFrames)])
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.msg))
		}
	}
}

// stop ends the animation and clears the line. Later calls do nothing.
func (s *spinner) stop() {
	s.once.Do(func() {
		close(s.quit)
		<-s.finished
		s.clear()
	})
}

// fail stops the spinner and leaves an error line in its place.
func (s *spinner) fail(msg string) {
	s.stop()
	printError(s.w, "%s", msg)
}

// succeed stops the spinner and leaves a success line in its place.
func (s *spinner) succeed(msg string) {
	s.stop()
	printSuccess(s.w, "%s", msg)
}

// interrupted reports whether the context ended the spinner.
func (s *spinner) interrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *spinner) clear() {
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len([]rune(s.msg))+2))
}
