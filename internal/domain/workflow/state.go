package workflow

import "github.com/garyjia/facturas-review/internal/domain/entity"

// State is a review state of an invoice.
type State string

const (
	StatePending   State = "PENDING"
	StateAccepted  State = "ACCEPTED"
	StateDiscarded State = "DISCARDED"
)

var validStates = map[State]bool{
	StatePending:   true,
	StateAccepted:  true,
	StateDiscarded: true,
}

// IsTerminal reports whether no trigger can leave the state.
func (s State) IsTerminal() bool {
	return s == StateAccepted || s == StateDiscarded
}

func (s State) String() string {
	return string(s)
}

// IsValid reports whether s is a known review state.
func (s State) IsValid() bool {
	return validStates[s]
}

// StateFor maps the stored corregido value onto a review state.
func StateFor(c entity.CorrectedStatus) State {
	switch {
	case c.IsAccepted():
		return StateAccepted
	case c.IsDiscarded():
		return StateDiscarded
	default:
		return StatePending
	}
}

// CorrectedFor is the inverse of StateFor.
func CorrectedFor(s State) entity.CorrectedStatus {
	switch s {
	case StateAccepted:
		return entity.CorrectedAccepted
	case StateDiscarded:
		return entity.CorrectedDiscarded
	default:
		return entity.CorrectedPending
	}
}
