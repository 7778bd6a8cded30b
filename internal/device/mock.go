package device

import (
	"errors"
	"sync"
)

// MockTransport is a scripted Transport for tests.
// Each Discover call returns the next snapshot; the last one repeats.
type MockTransport struct {
	mu          sync.Mutex
	snapshots   [][]Identity
	polls       int
	hook        func(poll int)
	discoverErr error
	connectErr  map[string]error
	sessions    map[string]*MockSession
	connects    int
}

// NewMockTransport creates a MockTransport returning the given snapshots.
func NewMockTransport(snapshots ...[]Identity) *MockTransport {
	return &MockTransport{
		snapshots:  snapshots,
		connectErr: make(map[string]error),
		sessions:   make(map[string]*MockSession),
	}
}

// SetSnapshots replaces the scripted snapshots and restarts from the first one.
func (m *MockTransport) SetSnapshots(snapshots ...[]Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = snapshots
	m.polls = 0
}

// SetDiscoverHook installs fn to run at the start of every Discover call,
// outside the transport's lock. Tests use it to block or observe polls.
func (m *MockTransport) SetDiscoverHook(fn func(poll int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = fn
}

// SetDiscoverError makes Discover fail with err (nil clears it).
func (m *MockTransport) SetDiscoverError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discoverErr = err
}

// SetConnectError makes Connect fail for the given serial.
func (m *MockTransport) SetConnectError(serial string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr[serial] = err
}

// Discover returns the next scripted snapshot.
func (m *MockTransport) Discover() ([]Identity, error) {
	m.mu.Lock()
	poll := m.polls
	m.polls++
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		hook(poll)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.discoverErr != nil {
		return nil, m.discoverErr
	}
	if len(m.snapshots) == 0 {
		return nil, nil
	}
	if poll >= len(m.snapshots) {
		poll = len(m.snapshots) - 1
	}
	ids := make([]Identity, len(m.snapshots[poll]))
	copy(ids, m.snapshots[poll])
	return ids, nil
}

// Connect opens a MockSession for id.
func (m *MockTransport) Connect(id Identity) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.connectErr[id.Serial]; err != nil {
		return nil, err
	}
	s := NewMockSession()
	m.sessions[id.Serial] = s
	m.connects++
	return s, nil
}

// Polls returns the number of Discover calls so far.
func (m *MockTransport) Polls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.polls
}

// Connects returns the number of successful Connect calls.
func (m *MockTransport) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

// Session returns the most recent session opened for serial, or nil.
func (m *MockTransport) Session(serial string) *MockSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[serial]
}

// ErrMockDisconnected is returned by a MockSession after Disconnect.
var ErrMockDisconnected = errors.New("mock session disconnected")

// MockSession is a Session driven by the test.
type MockSession struct {
	mu           sync.Mutex
	fn           SampleFunc
	alive        bool
	battery      int
	disconnected bool
}

// NewMockSession creates a live session with a full battery.
func NewMockSession() *MockSession {
	return &MockSession{alive: true, battery: 8}
}

// OnSample registers the sample callback.
func (s *MockSession) OnSample(fn SampleFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
}

// Emit delivers a sample synchronously to the registered callback.
func (s *MockSession) Emit(sample Sample) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(sample)
	}
}

// IsAlive reports the scripted liveness.
func (s *MockSession) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// SetAlive sets the liveness reported by IsAlive.
func (s *MockSession) SetAlive(alive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = alive
}

// SetBattery sets the level returned by BatteryLevel.
func (s *MockSession) SetBattery(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battery = level
}

// BatteryLevel returns the scripted battery level.
func (s *MockSession) BatteryLevel() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnected {
		return 0, ErrMockDisconnected
	}
	return s.battery, nil
}

// Disconnect marks the session disconnected and not alive.
func (s *MockSession) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = true
	s.alive = false
	return nil
}

// Disconnected reports whether Disconnect was called.
func (s *MockSession) Disconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}
