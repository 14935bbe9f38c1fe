package workflow

import (
	"context"
	"fmt"
	"sort"
)

// StateMachine tracks the review state of a single invoice.
type StateMachine interface {
	State() State

	// CanFire reports whether trigger has any transition from the current
	// state. Guards are not evaluated.
	CanFire(trigger Trigger) bool

	// Fire takes the first transition whose guard passes.
	Fire(ctx context.Context, trigger Trigger) error

	PermittedTriggers() []Trigger
}

type stateMachine struct {
	current State
	tables  map[State]transitionTable
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.tables[m.current][trigger]) > 0
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.tables[m.current][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	table := m.tables[m.current]
	triggers := make([]Trigger, 0, len(table))
	for trigger := range table {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
