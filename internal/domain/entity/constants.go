package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CorrectedStatus is the review state of an invoice as stored in "corregido":
// 0 not yet corrected, any positive value corrected, -1 discarded.
type CorrectedStatus int

const (
	CorrectedPending   CorrectedStatus = 0
	CorrectedAccepted  CorrectedStatus = 1
	CorrectedDiscarded CorrectedStatus = -1
)

// IsPending reports whether no operator has acted on the invoice yet.
func (c CorrectedStatus) IsPending() bool { return c == CorrectedPending }

// IsAccepted reports whether the invoice was corrected and accepted.
func (c CorrectedStatus) IsAccepted() bool { return c > 0 }

// IsDiscarded reports whether the invoice was discarded.
func (c CorrectedStatus) IsDiscarded() bool { return c < 0 }

func (c CorrectedStatus) String() string {
	switch {
	case c.IsPending():
		return "pending"
	case c.IsAccepted():
		return "accepted"
	default:
		return "discarded"
	}
}

// UnmarshalJSON accepts numbers, numeric strings ("-1") and null.
func (c *CorrectedStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = CorrectedPending
		return nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		*c = CorrectedStatus(int(v))
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			*c = CorrectedPending
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid corregido value %q: %w", v, err)
		}
		*c = CorrectedStatus(n)
	case bool:
		if v {
			*c = CorrectedAccepted
		} else {
			*c = CorrectedPending
		}
	default:
		return fmt.Errorf("invalid corregido value %s", string(data))
	}
	return nil
}

// Submission status values sent to the remote service.
const (
	SubmissionStatusCompleted = "completed"
	SubmissionStatusWarning   = "warning"
)
