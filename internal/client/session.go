package client

import (
	"context"
	"fmt"
	"net/http/httptrace"
	"sync"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
)

type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

var transitions = map[State][]State{
	StateIdle:       {StateUploading},
	StateUploading:  {StateProcessing, StateError},
	StateProcessing: {StateSuccess, StateError},
	StateSuccess:    {StateIdle, StateUploading},
	StateError:      {StateIdle, StateUploading},
}

// IllegalTransitionError is returned when a state change is not allowed.
type IllegalTransitionError struct {
	From, To State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

// Converter is satisfied by *Client.
type Converter interface {
	Convert(ctx context.Context, kind contract.Kind, filename string, data []byte) (Result, error)
}

// Session drives one user's conversions: it gates on credits, tracks the
// UI state and spends a credit only for a successful result.
type Session struct {
	conv     Converter
	settings *SettingsStore

	mu       sync.Mutex
	state    State
	last     Result
	lastErr  error
	OnChange func(State)
}

func NewSession(conv Converter, settings *SettingsStore) *Session {
	return &Session{conv: conv, settings: settings, state: StateIdle}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Last returns the most recent result and error.
func (s *Session) Last() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// Transition moves to next if allowed from the current state.
func (s *Session) Transition(next State) error {
	s.mu.Lock()
	err := s.transitionLocked(next)
	cb := s.OnChange
	s.mu.Unlock()
	if err == nil && cb != nil {
		cb(next)
	}
	return err
}

func (s *Session) transitionLocked(next State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			return nil
		}
	}
	return &IllegalTransitionError{From: s.state, To: next}
}

// Reset returns a finished session to idle.
func (s *Session) Reset() error {
	if st := s.State(); st == StateIdle {
		return nil
	}
	return s.Transition(StateIdle)
}

// Submit runs one conversion. The session moves to processing once the
// upload has been written.
func (s *Session) Submit(ctx context.Context, kind contract.Kind, filename string, data []byte) (Result, error) {
	if s.settings.Current().Credits <= 0 {
		return Result{}, ErrNoCredits
	}
	if err := s.Transition(StateUploading); err != nil {
		return Result{}, err
	}

	var once sync.Once
	toProcessing := func() { once.Do(func() { _ = s.Transition(StateProcessing) }) }
	trace := &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				toProcessing()
			}
		},
	}
	res, err := s.conv.Convert(httptrace.WithClientTrace(ctx, trace), kind, filename, data)
	if err != nil {
		s.finish(Result{}, err)
		return Result{}, err
	}
	toProcessing()

	if _, derr := s.settings.Decrement(); derr != nil {
		err = fmt.Errorf("spend credit: %w", derr)
	}
	s.finish(res, nil)
	return res, err
}

func (s *Session) finish(res Result, err error) {
	s.mu.Lock()
	s.last, s.lastErr = res, err
	next := StateSuccess
	if err != nil {
		next = StateError
	}
	terr := s.transitionLocked(next)
	cb := s.OnChange
	s.mu.Unlock()
	if terr == nil && cb != nil {
		cb(next)
	}
}
