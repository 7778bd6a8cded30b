// Package gesture classifies controller motion samples into discrete gesture states.
package gesture

import "fmt"

// State is the memoryless classification of a single motion sample.
type State int32

const (
	// PutDown is the resting state: no swing, controller not held up.
	PutDown State = iota
	// SwingUp is a fast upward swing.
	SwingUp
	// HoldAir means the controller is held up in the air.
	HoldAir
	// SwingDown is a fast downward swing.
	SwingDown
)

var stateNames = [...]string{
	PutDown:   "PutDown",
	SwingUp:   "SwingUp",
	HoldAir:   "HoldAir",
	SwingDown: "SwingDown",
}

// String returns the state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown gesture state %q", text)
}

// Handedness is the Left/Right role of a controller.
type Handedness int

const (
	// Left is the left controller of the pair.
	Left Handedness = iota
	// Right is the right controller of the pair.
	Right
)

// String returns "L" or "R".
func (h Handedness) String() string {
	if h == Left {
		return "L"
	}
	return "R"
}

// MarshalText implements encoding.TextMarshaler.
func (h Handedness) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handedness) UnmarshalText(text []byte) error {
	switch string(text) {
	case "L":
		*h = Left
	case "R":
		*h = Right
	default:
		return fmt.Errorf("unknown handedness %q", text)
	}
	return nil
}

// Classifier maps a sample to a State using fixed thresholds.
type Classifier struct {
	AccelX int // accel X above this means the controller is held up
	GyroY  int // |gyro Y| above this means a swing
}

// Classify derives the gesture state of one sample.
//
// The gyro check runs first and its sign is mirrored between the two hands,
// since the controllers are mounted mirrored. Accel is only consulted when no
// swing is detected. Both comparisons are strict.
func (c Classifier) Classify(accelX, gyroY int, hand Handedness) State {
	switch {
	case gyroY > c.GyroY:
		if hand == Left {
			return SwingDown
		}
		return SwingUp
	case gyroY < -c.GyroY:
		if hand == Left {
			return SwingUp
		}
		return SwingDown
	}

	if accelX > c.AccelX {
		return HoldAir
	}
	return PutDown
}
