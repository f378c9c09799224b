package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/youmna-rabie/incident-relay/internal/dashboard"
)

// Plain prints one line per dashboard change.
type Plain struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w, now: time.Now}
}

// OnChange is a dashboard.WithOnChange callback.
func (p *Plain) OnChange(c dashboard.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, Line(c, p.now()))
}
