package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides at fire time whether a transition may happen.
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects transitions and builds machines from them.
type StateMachineBuilder interface {
	// Configure returns the transition table of state, creating it on first use
	Configure(state State) StateConfiguration

	// Build returns an independent machine positioned at initialState
	Build(initialState State) StateMachine
}

// StateConfiguration adds outgoing transitions to one state.
type StateConfiguration interface {
	Permit(trigger Trigger, toState State) StateConfiguration
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type transitionTable map[Trigger][]transition

type stateConfig struct {
	transitions transitionTable
}

type stateMachineBuilder struct {
	states map[State]*stateConfig
}

// NewBuilder creates an empty builder.
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{states: make(map[State]*stateConfig)}
}

func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	cfg, ok := b.states[state]
	if !ok {
		cfg = &stateConfig{transitions: make(transitionTable)}
		b.states[state] = cfg
	}
	return cfg
}

func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// machines must not observe later Configure calls
	tables := make(map[State]transitionTable, len(b.states))
	for state, cfg := range b.states {
		table := make(transitionTable, len(cfg.transitions))
		for trigger, ts := range cfg.transitions {
			table[trigger] = append([]transition(nil), ts...)
		}
		tables[state] = table
	}

	return &stateMachine{current: initialState, tables: tables}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{toState: toState, guard: guard})
	return c
}
