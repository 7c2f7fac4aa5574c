// Package tray provides the system tray menu for handtune.
package tray

import (
	"context"
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/handtune/internal/app"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle     func(enabled bool)
	onOpenStatus func()
	onQuit       func()
	enabled      bool
	mode         string
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuVolume      *systray.MenuItem
	menuMode        *systray.MenuItem
}

// New creates a Tray showing the given enabled state and playback mode.
func New(enabled bool, mode string) *Tray {
	return &Tray{
		enabled: enabled,
		mode:    mode,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenStatus sets the callback for the "Open Status Page" item.
func (t *Tray) OnOpenStatus(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenStatus = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("handtune")
	systray.SetTooltip("handtune gesture music control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture control")
	systray.AddSeparator()

	t.menuMode = systray.AddMenuItem("Mode: "+t.mode, "Playback target")
	t.menuMode.Disable()
	t.menuLastGesture = systray.AddMenuItem(lastTitle(""), "Last recognized gesture")
	t.menuLastGesture.Disable()
	t.menuVolume = systray.AddMenuItem(volumeTitle(0, false), "Playback volume")
	t.menuVolume.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuStatus := systray.AddMenuItem("Open Status Page", "Open the status page in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit handtune")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuStatus.ClickedCh:
				t.handleOpenStatus()
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

func lastTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}

func volumeTitle(volume int, known bool) string {
	if !known {
		return "Volume: unknown"
	}
	return fmt.Sprintf("Volume: %d%%", volume)
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpenStatus() {
	t.mu.RLock()
	callback := t.onOpenStatus
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Update reflects a pipeline status in the menu.
func (t *Tray) Update(s app.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = s.Enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(s.Enabled))
	}
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastTitle(s.Label))
	}
	if t.menuVolume != nil {
		t.menuVolume.SetTitle(volumeTitle(s.Volume, s.VolumeKnown))
	}
}

// Follow applies status updates until ctx is done or updates closes.
// Only changes that alter the menu are applied.
func (t *Tray) Follow(ctx context.Context, updates <-chan app.Status) {
	var last app.Status
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			if !first && s.Enabled == last.Enabled && s.Label == last.Label &&
				s.Volume == last.Volume && s.VolumeKnown == last.VolumeKnown {
				continue
			}
			first = false
			last = s
			t.Update(s)
		}
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
