package event

// Type identifies the type of domain event
type Type string

const (
	TypeConnected        Type = "connected"
	TypeNotification     Type = "notification"
	TypeAlert            Type = "alert"
	TypeInvoiceIngested  Type = "invoice.ingested"
	TypeInvoiceUpdated   Type = "invoice.updated"
	TypeInvoiceAccepted  Type = "invoice.accepted"
	TypeInvoiceDiscarded Type = "invoice.discarded"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeConnected,
		TypeNotification,
		TypeAlert,
		TypeInvoiceIngested,
		TypeInvoiceUpdated,
		TypeInvoiceAccepted,
		TypeInvoiceDiscarded:
		return true
	default:
		return false
	}
}

// IsInvoice reports whether the event concerns a single invoice.
func (t Type) IsInvoice() bool {
	switch t {
	case TypeInvoiceIngested, TypeInvoiceUpdated, TypeInvoiceAccepted, TypeInvoiceDiscarded:
		return true
	default:
		return false
	}
}
