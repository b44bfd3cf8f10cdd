// Package store keeps the single current metrics state and publishes changes.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/and161185/metrics-state/internal/metrics"
	"github.com/and161185/metrics-state/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type subscription struct {
	id string
	fn func(metrics.State)
}

// Store owns the current metrics state. The state only changes through Dispatch.
type Store struct {
	mu       sync.RWMutex
	dispatch sync.Mutex // serializes Dispatch including listener calls
	state    metrics.State
	subs     []subscription
	recorder Recorder
	logger   *zap.SugaredLogger
}

// Option configures a Store.
type Option func(*Store)

// WithInitialState starts the store from state instead of the empty state.
func WithInitialState(state metrics.State) Option {
	return func(s *Store) { s.state = state.Clone() }
}

// WithRecorder sets the dispatch observer.
func WithRecorder(r Recorder) Option {
	return func(s *Store) { s.recorder = r }
}

// New creates a store holding the initial empty state.
func New(logger *zap.SugaredLogger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Store{
		state:    metrics.InitialState(),
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() metrics.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Clone()
}

// Dispatch reduces action into the current state, stores the result and
// notifies listeners. Each call completes before the next one starts.
func (s *Store) Dispatch(action metrics.Action) metrics.State {
	if action == nil {
		return s.State()
	}

	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	next := metrics.Reduce(s.state, action).Clone()
	s.state = next
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	s.recorder.ObserveDispatch(action.Kind(), len(next))
	s.logger.Debugf("dispatched %s, records=%d, listeners=%d", action.Kind(), len(next), len(subs))

	for _, sub := range subs {
		sub.fn(next.Clone())
	}

	return next.Clone()
}

// Subscribe registers fn for every state produced by later dispatches.
// fn must not dispatch on the same store. The returned func removes it
// and may be called more than once.
func (s *Store) Subscribe(fn func(metrics.State)) (unsubscribe func()) {
	id := uuid.NewString()

	s.mu.Lock()
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.mu.Unlock()

	s.logger.Debugf("listener %s subscribed", id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					break
				}
			}
			s.logger.Debugf("listener %s unsubscribed", id)
		})
	}
}

// SaveToFile writes the current state as JSON. An empty state is written
// as [] so a restore does not bring back records that were replaced.
func (s *Store) SaveToFile(filePath string) error {
	state := s.State()
	if state == nil {
		state = metrics.InitialState()
	}

	data, err := json.MarshalIndent([]model.MetricRecord(state), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Infof("saved %d records to %s", len(state), filePath)

	return nil
}

// LoadFromFile replaces the state with a snapshot written by SaveToFile.
// A missing file leaves the state untouched.
func (s *Store) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	var records []model.MetricRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}

	s.Dispatch(metrics.NewFetchMetricsAction(records...))

	s.logger.Infof("loaded %d records from %s", len(records), filePath)

	return nil
}
