package workflow

// Trigger is an operator decision on an invoice.
type Trigger string

const (
	TriggerAccept  Trigger = "ACCEPT"
	TriggerDiscard Trigger = "DISCARD"
)

func (t Trigger) String() string {
	return string(t)
}
