package keys

import "sync"

// Event is one key event recorded by MockInjector.
type Event struct {
	Code    KeyCode
	Pressed bool
}

// MockInjector records key events instead of sending them.
type MockInjector struct {
	mu     sync.Mutex
	events []Event
	err    error
}

// NewMockInjector creates an empty MockInjector.
func NewMockInjector() *MockInjector {
	return &MockInjector{}
}

// SetError makes every subsequent call return err (the event is still recorded).
func (m *MockInjector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Press records a press.
func (m *MockInjector) Press(code KeyCode) error {
	return m.record(Event{Code: code, Pressed: true})
}

// Release records a release.
func (m *MockInjector) Release(code KeyCode) error {
	return m.record(Event{Code: code, Pressed: false})
}

func (m *MockInjector) record(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

// Events returns a copy of the recorded events.
func (m *MockInjector) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Reset clears the recorded events.
func (m *MockInjector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
