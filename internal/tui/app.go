package tui

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/youmna-rabie/incident-relay/internal/dashboard"
)

const refreshInterval = 15 * time.Second

// App is the full-screen terminal dashboard.
type App struct {
	tapp   *tview.Application
	state  *dashboard.State
	header *tview.TextView
	alert  *tview.TextView
	list   *tview.TextView
	footer *tview.TextView
	layout *tview.Flex

	onDismiss func()
	now       func() time.Time
	dirty     chan struct{}
	stop      chan struct{}
}

// NewApp builds the screen for state. Call OnChange from the dashboard
// subscriber to keep it current.
func NewApp(state *dashboard.State) *App {
	a := &App{
		tapp:  tview.NewApplication(),
		state: state,
		now:   time.Now,
		dirty: make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}

	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	a.alert = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.alert.SetBackgroundColor(tcell.ColorDarkRed)

	a.list = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	a.list.SetBorder(true).SetTitle(" Live Incident Sheet ")

	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetText("[green]d[-] dismiss alert  [green]↑↓[-] scroll  [green]q[-] quit")

	a.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.list, 0, 1, true).
		AddItem(a.footer, 1, 0, false)

	a.tapp.SetRoot(a.layout, true).EnableMouse(false)
	a.tapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q':
			a.tapp.Stop()
			return nil
		case 'd':
			if a.onDismiss != nil {
				a.onDismiss()
			}
			return nil
		}
		return event
	})

	a.refresh()
	return a
}

// OnDismiss sets what the 'd' key does.
func (a *App) OnDismiss(fn func()) {
	a.onDismiss = fn
}

// OnChange is a dashboard.WithOnChange callback. It never blocks; bursts of
// changes collapse into one redraw.
func (a *App) OnChange(dashboard.Change) {
	select {
	case a.dirty <- struct{}{}:
	default:
	}
}

// Run blocks until the user quits or Stop is called.
func (a *App) Run() error {
	go a.redraw()
	defer close(a.stop)
	return a.tapp.Run()
}

// Stop ends Run.
func (a *App) Stop() {
	a.tapp.Stop()
}

// redraw applies pending changes and keeps the relative times fresh.
func (a *App) redraw() {
	t := time.NewTicker(refreshInterval)
	defer t.Stop()
	for {
		select {
		case <-a.dirty:
		case <-t.C:
		case <-a.stop:
			return
		}
		a.tapp.QueueUpdateDraw(a.refresh)
	}
}

func (a *App) refresh() {
	snap := a.state.Snapshot()

	a.header.SetText(" [::b]Emergency Command Center[::-]   " + statusText(snap.Connected))
	a.list.SetText(listText(snap.Events, a.now()))

	a.layout.RemoveItem(a.alert)
	if snap.Alert {
		a.alert.SetText("[white::b]TRANSFER TO HUMAN: caller asked for an operator. Press d to dismiss.[-::-]")
		a.layout.Clear().
			AddItem(a.header, 1, 0, false).
			AddItem(a.alert, 1, 0, false).
			AddItem(a.list, 0, 1, true).
			AddItem(a.footer, 1, 0, false)
	}
}
