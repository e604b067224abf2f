// Package tray shows who is recognized in the system tray and lets the user
// pause recognition.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	present     string
	state       string
	mu          sync.RWMutex

	menuToggle  *systray.MenuItem
	menuPresent *systray.MenuItem
	menuState   *systray.MenuItem
}

// New creates a Tray with recognition enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
		state:   "verifying",
	}
}

// OnToggle sets the callback run when recognition is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback run when the dashboard item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback run when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until systray.Quit is called and
// must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("Skelid")
	systray.SetTooltip("Skeleton identification")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle recognition")
	systray.AddSeparator()

	t.menuPresent = systray.AddMenuItem(presentTitle(t.present), "Recognized person")
	t.menuPresent.Disable()
	t.menuState = systray.AddMenuItem(stateTitle(t.state), "Enrolment state")
	t.menuState.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Skelid")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func presentTitle(name string) string {
	if name == "" {
		return "Present: nobody"
	}
	return "Present: " + name
}

func stateTitle(state string) string {
	return "State: " + state
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetPresent shows the recognized name.
func (t *Tray) SetPresent(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.present = name
	if t.menuPresent != nil {
		t.menuPresent.SetTitle(presentTitle(name))
	}
}

// SetState shows the enrolment state.
func (t *Tray) SetState(state string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = state
	if t.menuState != nil {
		t.menuState.SetTitle(stateTitle(state))
	}
}

// Present returns the name currently shown.
func (t *Tray) Present() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.present
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Quit stops the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}
