package invoice

import (
	"fmt"
	"strings"
)

// FieldKind is the input kind of an annotated field.
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindDate   FieldKind = "date"
)

// FieldSpec describes how a rule violation is shown to the operator.
type FieldSpec struct {
	Key         ErrorCode `json:"key"`
	Label       string    `json:"label"`
	Controls    []string  `json:"controls"`
	Kind        FieldKind `json:"type"`
	Step        string    `json:"step,omitempty"`
	Placeholder string    `json:"placeholder"`
}

var catalog = map[ErrorCode]FieldSpec{
	CodeVATRate: {
		Label:       "IVA-1",
		Controls:    []string{"iva1"},
		Kind:        KindNumber,
		Placeholder: "Entrada vacía",
	},
	CodeEntryNumber: {
		Label:       "Asiento",
		Controls:    []string{"num_apunte"},
		Kind:        KindNumber,
		Step:        "0.01",
		Placeholder: "Sin número de asiento",
	},
	CodeFieldLength: {
		Label:       "Longitud",
		Controls:    []string{"longitud"},
		Kind:        KindText,
		Placeholder: "Algún campo excede la longitud",
	},
	CodeLedgerAccount: {
		Label:       "No se ha podido asignar número de cuenta",
		Controls:    []string{"nif_emision", "nif_receptor"},
		Kind:        KindText,
		Placeholder: "NIF vacío",
	},
	CodeTotalMismatch: {
		Label: "Importe Total (€)",
		Controls: []string{
			"importe_total",
			"base1", "cuota1",
			"base2", "cuota2",
			"base3", "cuota3",
			"recargo1", "recargo2", "recargo3",
		},
		Kind:        KindNumber,
		Placeholder: "El total no coincide con la suma de bases e IVA",
	},
	CodeInvoiceType: {
		Label:       "Tipo factura",
		Controls:    []string{"tipo"},
		Kind:        KindText,
		Placeholder: "Esta no es una factura de compra",
	},
	CodeInvalidDate: {
		Label:       "Fecha",
		Controls:    []string{"fecha"},
		Kind:        KindDate,
		Placeholder: "La fecha no está en el formato correcto",
	},
	CodeMissingIssuer: {
		Label:       "NIF Emisor",
		Controls:    []string{"nif_emision"},
		Kind:        KindText,
		Placeholder: "No existe NIF del emisor",
	},
	CodeMissingReceiver: {
		Label:       "NIF Receptor",
		Controls:    []string{"nif_receptor"},
		Kind:        KindText,
		Placeholder: "No existe NIF del receptor",
	},
	CodeSameTaxIDs: {
		Label:       "NIF Emisor y Receptor iguales",
		Controls:    []string{"nif_receptor", "nif_emision"},
		Kind:        KindText,
		Placeholder: "El nif del emisor y del receptor es el mismo",
	},
	CodeMissingNumber: {
		Label:       "No existe número de factura",
		Controls:    []string{"numero_factura"},
		Kind:        KindText,
		Placeholder: "No existe número de factura",
	},
}

// Resolve maps codes to their field annotations, in input order. Codes missing
// from the catalog still produce an entry so no violation goes unseen.
// overrides replaces the label of known codes.
func Resolve(codes []ErrorCode, overrides map[ErrorCode]string) []FieldSpec {
	out := make([]FieldSpec, 0, len(codes))

	for _, code := range codes {
		base, ok := catalog[code]
		if !ok {
			out = append(out, FieldSpec{
				Key:         code,
				Label:       fmt.Sprintf("Código %s desconocido", code),
				Controls:    []string{"error_" + string(code)},
				Kind:        KindText,
				Placeholder: fmt.Sprintf("Código %s no está mapeado", code),
			})
			continue
		}

		label := base.Label
		if override, ok := overrides[code]; ok {
			label = override
		}

		spec := base
		spec.Key = code
		spec.Label = strings.TrimSpace(label)
		spec.Controls = append([]string(nil), base.Controls...)
		out = append(out, spec)
	}

	return out
}

// ParseCodes splits a ";"-separated error_code value, dropping blanks.
func ParseCodes(s string) []ErrorCode {
	parts := strings.Split(s, ";")
	codes := make([]ErrorCode, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, ErrorCode(p))
		}
	}
	return codes
}

// JoinCodes is the inverse of ParseCodes.
func JoinCodes(codes []ErrorCode) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ";")
}

// HasFieldError reports whether any annotation flags the given control.
func HasFieldError(specs []FieldSpec, control string) bool {
	for _, s := range specs {
		for _, c := range s.Controls {
			if c == control {
				return true
			}
		}
	}
	return false
}
