// Package catalog holds the per-session catalog view and the aggregator that fills it.
package catalog

import (
	"slices"
	"sync"

	"github.com/icco/kodflex/models"
)

// State is the catalog view read by the storefront pages.
type State struct {
	Trending []models.Movie `json:"trending"`
	Popular  []models.Movie `json:"popular"`
	TopRated []models.Movie `json:"top_rated"`
	Upcoming []models.Movie `json:"upcoming"`
	Loading  bool           `json:"loading"`
	Error    *string        `json:"error"`
}

// Featured is the hero banner pick: first trending title, else first popular one.
func (s State) Featured() *models.Movie {
	if len(s.Trending) > 0 {
		return &s.Trending[0]
	}
	if len(s.Popular) > 0 {
		return &s.Popular[0]
	}
	return nil
}

// Action is one of the fixed store mutations.
type Action interface {
	apply(State) State
}

type SetLoading bool

type SetError struct{ Message *string }

type SetTrending []models.Movie

type SetPopular []models.Movie

type SetTopRated []models.Movie

type SetUpcoming []models.Movie

func (a SetLoading) apply(s State) State {
	s.Loading = bool(a)
	return s
}

func (a SetError) apply(s State) State {
	s.Error = a.Message
	return s
}

func (a SetTrending) apply(s State) State {
	s.Trending = a
	s.Loading = false
	return s
}

func (a SetPopular) apply(s State) State {
	s.Popular = a
	s.Loading = false
	return s
}

func (a SetTopRated) apply(s State) State {
	s.TopRated = a
	s.Loading = false
	return s
}

func (a SetUpcoming) apply(s State) State {
	s.Upcoming = a
	s.Loading = false
	return s
}

// Reduce returns the state after applying action. It has no side effects.
func Reduce(s State, action Action) State {
	if action == nil {
		return s
	}
	return action.apply(s)
}

// ErrorMessage is a helper for building SetError actions.
func ErrorMessage(msg string) SetError {
	return SetError{Message: &msg}
}

// Store owns one State. All writes go through Dispatch.
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners []func(State)
}

func NewStore() *Store {
	return &Store{}
}

// Dispatch reduces a batch of actions under one lock, so readers only see the
// state before or after the whole batch.
func (s *Store) Dispatch(actions ...Action) State {
	s.mu.Lock()
	for _, a := range actions {
		s.state = Reduce(s.state, a)
	}
	next := s.state
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// State returns the current snapshot. Slices are shared but never mutated.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to be called after every dispatched batch.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
