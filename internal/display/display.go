// Package display shows a short status summary when the node is woken by
// its button.
package display

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/trap-sensor/internal/logic"
)

// Summary is what the screen shows.
type Summary struct {
	Status            logic.Status
	BatteryMillivolts float32
	SinceLastUplink   time.Duration
}

// Text renders the summary as the four lines shown on the 128x64 OLED.
func (s Summary) Text() string {
	since := s.SinceLastUplink.Truncate(time.Second)
	mins := int64(since / time.Minute)
	secs := int64(since%time.Minute) / int64(time.Second)
	return fmt.Sprintf("State: %s\nBattery: %.3fV\nLast message:\n  %dm %ds ago",
		s.Status, s.BatteryMillivolts/1000, mins, secs)
}

// Renderer draws summaries on a panel.
type Renderer interface {
	// RenderSummary turns the panel on and draws s.
	RenderSummary(s Summary) error

	// Off blanks the panel.
	Off() error
}

// LogRenderer writes summaries to the log. It is used on hosts without a panel.
type LogRenderer struct{}

func (LogRenderer) RenderSummary(s Summary) error {
	log.Printf("display:\n%s", s.Text())
	return nil
}

func (LogRenderer) Off() error {
	log.Printf("display: off")
	return nil
}
