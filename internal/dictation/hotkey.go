// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     dictation
// Description: Global hotkey for toggling recording
// License:     MIT
// ============================================================================

package dictation

import (
	"fmt"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"golang.design/x/hotkey"
)

// registerHotkey registers Ctrl+Shift+D as a global record toggle and
// posts toggle events into the UI. Returns a cleanup function.
//
// Note: On macOS, the golang.design/x/hotkey library can cause SIGTRAP
// crashes due to CGO and Objective-C runtime issues, so registration is
// skipped there and the keyboard shortcut inside the terminal is the only
// toggle.
func registerHotkey(events chan<- tea.Msg) (func(), error) {
	if runtime.GOOS == "darwin" {
		return nil, fmt.Errorf("global hotkey disabled on macOS")
	}

	hk := hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeyD)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("failed to register hotkey: %w", err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-hk.Keydown():
				select {
				case events <- toggleMsg{}:
				default:
				}
			}
		}
	}()

	return func() {
		close(done)
		hk.Unregister()
	}, nil
}
