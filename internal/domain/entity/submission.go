package entity

import (
	"strconv"
	"strings"
)

// Submission is the body posted to the remote service when an operator
// accepts or discards an invoice. The invoice fields are flattened into it.
type Submission struct {
	*Invoice

	UserID      string      `json:"userId"`
	IDUser      string      `json:"id_user,omitempty"`
	CompanyCode string      `json:"codEmpresa,omitempty"`
	File        string      `json:"file"`
	TotalFiles  string      `json:"totalFiles"`
	Status      string      `json:"status,omitempty"`
	Corrected   interface{} `json:"corregido"`
}

// NewSubmission builds the shared part of a submission. The invoice owner is
// preferred over fallbackUser.
func NewSubmission(inv *Invoice, fallbackUser string, totalFiles int) *Submission {
	user := fallbackUser
	if inv.UserID != nil {
		user = strconv.FormatInt(*inv.UserID, 10)
	}

	return &Submission{
		Invoice:     inv,
		UserID:      user,
		CompanyCode: Deref(inv.CompanyCode),
		File:        Deref(inv.FileName),
		TotalFiles:  strconv.Itoa(totalFiles),
	}
}

// Completed marks the submission as an accepted correction.
func (s *Submission) Completed() *Submission {
	s.IDUser = s.UserID
	s.Status = SubmissionStatusCompleted
	s.Corrected = int(CorrectedAccepted)
	return s
}

// Discarded marks the submission as a discard. The remote hook expects the
// status as a string.
func (s *Submission) Discarded() *Submission {
	s.Status = SubmissionStatusWarning
	s.Corrected = strconv.Itoa(int(CorrectedDiscarded))
	return s
}

// ResolveID returns the stable identifier of a row: the document reference,
// then the invoice number, then the prefix. Empty when none is set.
func (inv *Invoice) ResolveID() string {
	for _, candidate := range []*string{String(inv.DocumentID), inv.Number, inv.Prefix} {
		if v := strings.TrimSpace(Deref(candidate)); v != "" {
			return v
		}
	}
	return ""
}
