package invoice

import (
	"github.com/garyjia/facturas-review/internal/domain/entity"
)

// ErrorCode is an operator-facing rule violation code.
type ErrorCode string

const (
	CodeVATRate         ErrorCode = "301"
	CodeEntryNumber     ErrorCode = "302"
	CodeFieldLength     ErrorCode = "303"
	CodeLedgerAccount   ErrorCode = "304"
	CodeTotalMismatch   ErrorCode = "305"
	CodeInvoiceType     ErrorCode = "306"
	CodeInvalidDate     ErrorCode = "307"
	CodeMissingIssuer   ErrorCode = "308"
	CodeMissingReceiver ErrorCode = "309"
	CodeSameTaxIDs      ErrorCode = "310"
	CodeMissingNumber   ErrorCode = "311"
)

func (c ErrorCode) String() string {
	return string(c)
}

// Validate returns the rules inv violates, in the fixed order 305, 307, 308,
// 309, 310. Every rule is evaluated; an empty result means the invoice can be
// submitted.
func Validate(inv *entity.Invoice) []ErrorCode {
	codes := make([]ErrorCode, 0, 5)
	if inv == nil {
		inv = &entity.Invoice{}
	}

	if !totalMatches(inv) {
		codes = append(codes, CodeTotalMismatch)
	}

	if !IsValidDate(entity.Deref(inv.Date)) {
		codes = append(codes, CodeInvalidDate)
	}

	issuer := entity.Deref(inv.IssuerTaxID)
	receiver := entity.Deref(inv.ReceiverTaxID)

	if issuer == "" {
		codes = append(codes, CodeMissingIssuer)
	}
	if receiver == "" {
		codes = append(codes, CodeMissingReceiver)
	}
	if issuer == receiver {
		codes = append(codes, CodeSameTaxIDs)
	}

	return codes
}

// totalMatches compares the total against bases plus quotas minus surcharges.
// The comparison is exact: no rounding tolerance is applied.
func totalMatches(inv *entity.Invoice) bool {
	var bases, quotas, surcharges float64
	for _, t := range inv.Tranches() {
		bases += orZero(t.Base)
		quotas += orZero(t.Quota)
		surcharges += orZero(t.Surcharge)
	}

	return orZero(inv.Total) == bases+quotas-surcharges
}

func orZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
