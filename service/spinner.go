package service

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// spinner renders an animated progress indicator on a single terminal
// line while a slow fixture operation runs.
type spinner struct {
	w    io.Writer
	text string
	done chan struct{}
	wg   sync.WaitGroup
}

func startSpinner(w io.Writer, text string) *spinner {
	s := &spinner{
		w:    w,
		text: text,
		done: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.spin()
	return s
}

func (s *spinner) spin() {
	defer s.wg.Done()
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			fmt.Fprintf(s.w, "\r%s %s", spinnerStyle.Render(spinnerFrames[frame]), s.text)
			frame = (frame + 1) % len(spinnerFrames)
		}
	}
}

// stop ends the animation and replaces the line with an ok or fail
// glyph.
func (s *spinner) stop(ok bool) {
	close(s.done)
	s.wg.Wait()
	glyph := okStyle.Render("✔")
	if !ok {
		glyph = failStyle.Render("✘")
	}
	fmt.Fprintf(s.w, "\r%s %s\n", glyph, s.text)
}
