package display

import "sync"

// FakeRenderer records rendered summaries.
type FakeRenderer struct {
	mu        sync.Mutex
	summaries []Summary
	offs      int

	// RenderError, if set, is returned by RenderSummary.
	RenderError error
}

func (f *FakeRenderer) RenderSummary(s Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RenderError != nil {
		return f.RenderError
	}
	f.summaries = append(f.summaries, s)
	return nil
}

func (f *FakeRenderer) Off() error {
	f.mu.Lock()
	f.offs++
	f.mu.Unlock()
	return nil
}

// Summaries returns the rendered summaries.
func (f *FakeRenderer) Summaries() []Summary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Summary(nil), f.summaries...)
}

// Offs returns how many times the panel was blanked.
func (f *FakeRenderer) Offs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offs
}
