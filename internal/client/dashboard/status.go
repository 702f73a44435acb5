package dashboard

import (
	"sync"

	"github.com/webitel/admin-notify-service/internal/client/stream"
)

// Status collects what the stream client reports through its hooks.
type Status struct {
	mu      sync.RWMutex
	state   stream.State
	warning stream.Warning
	changed func()
}

func NewStatus() *Status {
	return &Status{state: stream.StateConnecting}
}

func (s *Status) SetState(st stream.State) {
	s.mu.Lock()
	s.state = st
	fn := s.changed
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Status) SetWarning(w stream.Warning) {
	s.mu.Lock()
	s.warning = w
	fn := s.changed
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Status) Get() (stream.State, stream.Warning) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.warning
}

func (s *Status) onChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed = fn
}

// Hooks plugs the status into a stream client.
func (s *Status) Hooks() []stream.Option {
	return []stream.Option{
		stream.WithStateHook(s.SetState),
		stream.WithWarningHook(s.SetWarning),
	}
}
