// Package keys turns gesture states into synthetic key presses and releases.
package keys

import (
	"fmt"
	"strings"

	"github.com/ayusman/joythm/internal/gesture"
)

// Injector sends key events to the operating system.
type Injector interface {
	Press(code KeyCode) error
	Release(code KeyCode) error
}

// Action is the key operation derived from a gesture state.
type Action int

const (
	// Release lifts the key.
	Release Action = iota
	// Press pushes the key down.
	Press
)

// String returns "press" or "release".
func (a Action) String() string {
	if a == Press {
		return "press"
	}
	return "release"
}

// ActionFor maps a gesture state to its key action.
//
// HoldAir and SwingUp only press; the matching release comes from a later
// sample that classifies differently.
func ActionFor(s gesture.State) Action {
	switch s {
	case gesture.SwingUp, gesture.HoldAir:
		return Press
	default:
		return Release
	}
}

// Emitter applies the action of a gesture state to one configured key.
// It keeps no state between calls.
type Emitter struct {
	injector Injector
	key      KeyCode
}

// NewEmitter creates an Emitter for key using the given injector.
func NewEmitter(injector Injector, key KeyCode) *Emitter {
	return &Emitter{injector: injector, key: key}
}

// Emit issues the action for s and returns it. Injector errors are ignored.
func (e *Emitter) Emit(s gesture.State) Action {
	action := ActionFor(s)
	if action == Press {
		_ = e.injector.Press(e.key)
	} else {
		_ = e.injector.Release(e.key)
	}
	return action
}

// Release lifts the key regardless of any gesture state.
func (e *Emitter) Release() error {
	return e.injector.Release(e.key)
}

// Key returns the key the emitter drives.
func (e *Emitter) Key() KeyCode {
	return e.key
}

// Policy decides whether a classified sample produces a key event.
type Policy int

const (
	// EverySample re-issues the action for every sample, even if unchanged.
	EverySample Policy = iota
	// OnChange issues the action only when the device's state changed.
	OnChange
)

// ShouldEmit reports whether a sample moving a device from prev to next
// must be forwarded to the Emitter.
func (p Policy) ShouldEmit(prev, next gesture.State) bool {
	if p == OnChange {
		return prev != next
	}
	return true
}

// String returns the configuration name of the policy.
func (p Policy) String() string {
	if p == OnChange {
		return "on-change"
	}
	return "every-sample"
}

// ParsePolicy parses "every-sample" or "on-change".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "every-sample":
		return EverySample, nil
	case "on-change":
		return OnChange, nil
	default:
		return EverySample, fmt.Errorf("unknown emission policy %q", s)
	}
}
