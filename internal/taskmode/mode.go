// Package taskmode defines the closed set of task modes a prompt can be
// tagged with, and the selector holding the current choice.
package taskmode

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidMode is returned when a value outside the enumeration is used.
var ErrInvalidMode = errors.New("invalid task mode")

// Mode tells the backend how to interpret a prompt.
type Mode string

const (
	General   Mode = "general"
	Explain   Mode = "explain"
	Fix       Mode = "fix"
	Refactor  Mode = "refactor"
	Docstring Mode = "docstring"
	Review    Mode = "review"
	Optimize  Mode = "optimize"
	Testgen   Mode = "testgen"
	Translate Mode = "translate"
	Generate  Mode = "generate"
)

// Default is the mode a new session starts with.
const Default = General

var all = []Mode{General, Explain, Fix, Refactor, Docstring, Review, Optimize, Testgen, Translate, Generate}

// All returns every mode in display order.
func All() []Mode {
	out := make([]Mode, len(all))
	copy(out, all)
	return out
}

// Valid reports whether m belongs to the enumeration.
func (m Mode) Valid() bool {
	for _, v := range all {
		if v == m {
			return true
		}
	}
	return false
}

// Next returns the mode after m in display order, wrapping around.
// An invalid mode yields Default.
func (m Mode) Next() Mode {
	for i, v := range all {
		if v == m {
			return all[(i+1)%len(all)]
		}
	}
	return Default
}

func (m Mode) String() string { return string(m) }

// Parse converts s to a Mode. Matching is case-insensitive.
func Parse(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Selector holds the currently chosen mode.
type Selector struct {
	mu   sync.RWMutex
	mode Mode
}

// NewSelector creates a selector starting at initial, or Default if
// initial is not a valid mode.
func NewSelector(initial Mode) *Selector {
	if !initial.Valid() {
		initial = Default
	}
	return &Selector{mode: initial}
}

// Get returns the current mode.
func (s *Selector) Get() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Set updates the current mode and reports whether it changed.
// Invalid modes are rejected and leave the selector untouched.
func (s *Selector) Set(m Mode) (bool, error) {
	if !m.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidMode, string(m))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == m {
		return false, nil
	}
	s.mode = m
	return true, nil
}
