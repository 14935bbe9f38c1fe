package workflow

// NewReviewMachine builds the review lifecycle of one invoice:
//
//	PENDING --ACCEPT--> ACCEPTED
//	PENDING --DISCARD--> DISCARDED
//
// Both transitions are vetoed when stillPending returns false, which callers
// use to check the remote record before acting. ACCEPTED and DISCARDED are
// terminal.
func NewReviewMachine(initial State, stillPending GuardFunc) StateMachine {
	b := NewBuilder()

	b.Configure(StatePending).
		PermitIf(TriggerAccept, StateAccepted, stillPending).
		PermitIf(TriggerDiscard, StateDiscarded, stillPending)

	return b.Build(initial)
}
