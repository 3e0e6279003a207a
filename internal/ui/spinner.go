package ui

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var frames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// Spinner displays an animated progress indicator on stderr. When stderr
// is not a terminal (import runs are often piped to a log file) it prints
// each message as a plain line instead of animating.
type Spinner struct {
	mu       sync.Mutex
	msg      string
	done     chan struct{}
	animated bool
}

// NewSpinner creates a new Spinner (not yet running).
func NewSpinner() *Spinner {
	animated := false
	if info, err := os.Stderr.Stat(); err == nil {
		animated = info.Mode()&os.ModeCharDevice != 0
	}
	return &Spinner{animated: animated}
}

// Start begins the spinner with the given message.
func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()

	if !s.animated {
		fmt.Fprintln(os.Stderr, msg)
		return
	}

	s.mu.Lock()
	s.done = make(chan struct{})
	s.mu.Unlock()
	go s.run()
}

// Update changes the progress message while the spinner is running.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	changed := msg != s.msg
	s.msg = msg
	s.mu.Unlock()

	if !s.animated && changed {
		fmt.Fprintln(os.Stderr, msg)
	}
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	s.mu.Unlock()

	if s.animated {
		fmt.Fprintf(os.Stderr, "\r\033[K")
	}
}

func (s *Spinner) run() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	tick := time.NewTicker(80 * time.Millisecond)
	defer tick.Stop()

	i := 0
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			s.mu.Lock()
			msg := s.msg
			s.mu.Unlock()
			fmt.Fprintf(os.Stderr, "\r\033[K%c %s", frames[i%len(frames)], msg)
			i++
		}
	}
}
