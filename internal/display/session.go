package display

import (
	"log"
	"time"
)

// Session shows one summary for a fixed window in its own goroutine.
// The window is not renewable and the session cannot be cancelled.
type Session struct {
	done chan struct{}
}

// Start renders the summary returned by source and keeps it on screen for
// window. source runs inside the session goroutine.
func Start(r Renderer, window time.Duration, source func() Summary) *Session {
	s := &Session{done: make(chan struct{})}
	go func() {
		defer close(s.done)
		timer := time.NewTimer(window)
		defer timer.Stop()

		if err := r.RenderSummary(source()); err != nil {
			log.Printf("display: render: %v", err)
		}
		<-timer.C
		if err := r.Off(); err != nil {
			log.Printf("display: off: %v", err)
		}
	}()
	return s
}

// Wait blocks until the session window has elapsed. A nil Session returns
// immediately.
func (s *Session) Wait() {
	if s == nil {
		return
	}
	<-s.done
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
