package entity

import "strings"

// Invoice is a machine-extracted invoice ("factura") under operator review.
// Every field is optional; nil means the pipeline did not provide a value.
// JSON names are the wire contract shared with the extraction pipeline.
type Invoice struct {
	Number        *string `json:"numero_factura"`
	FileName      *string `json:"nombre_factura"`
	ClientName    *string `json:"nombre_cliente"`
	ProviderName  *string `json:"nombre_proveedor"`
	Date          *string `json:"fecha"`
	IssuerTaxID   *string `json:"nif_emision"`
	ReceiverTaxID *string `json:"nif_receptor"`
	LateralTaxID  *string `json:"cif_lateral"`

	Base1      *float64 `json:"base1"`
	Rate1      *float64 `json:"iva1"`
	Quota1     *float64 `json:"cuota1"`
	Surcharge1 *float64 `json:"recargo1"`
	Base2      *float64 `json:"base2"`
	Rate2      *float64 `json:"iva2"`
	Quota2     *float64 `json:"cuota2"`
	Surcharge2 *float64 `json:"recargo2"`
	Base3      *float64 `json:"base3"`
	Rate3      *float64 `json:"iva3"`
	Quota3     *float64 `json:"cuota3"`
	Surcharge3 *float64 `json:"recargo3"`

	WithholdingBase    *float64 `json:"base_retencion"`
	WithholdingPercent *float64 `json:"porcentaje_retencion"`
	WithholdingQuota   *float64 `json:"cuota_retencion"`

	Total         *float64 `json:"importe_total"`
	LedgerAccount *float64 `json:"cuenta_contable"`
	EntryNumber   *float64 `json:"num_apunte"`

	PaymentMethod *string `json:"metodo_pago"`
	Prefix        *string `json:"prefijo"`
	Length        *string `json:"longitud"`
	Type          *string `json:"tipo"`
	URL           *string `json:"url"`
	CompanyCode   *string `json:"codigo_empresa"`
	ErrorCode     *string `json:"error_code"`

	Valid     bool            `json:"valid"`
	Corrected CorrectedStatus `json:"corregido"`

	DocumentID string  `json:"id_doc_drive"`
	Timestamp  *string `json:"timestamp"`
	UserID     *int64  `json:"id_user,omitempty"`
	SessionID  *int64  `json:"id_session,omitempty"`

	ReceivedAt string `json:"received_at,omitempty"`
	ClientIP   string `json:"client_ip,omitempty"`
}

// Tranche is one of the three parallel tax groupings of an invoice.
type Tranche struct {
	Base      *float64
	Rate      *float64
	Quota     *float64
	Surcharge *float64
}

// IsEmpty reports whether the tranche carries no value at all.
func (t Tranche) IsEmpty() bool {
	return t.Base == nil && t.Rate == nil && t.Quota == nil && t.Surcharge == nil
}

// Tranches returns the tax tranches in order 1..3.
func (inv *Invoice) Tranches() [3]Tranche {
	return [3]Tranche{
		{Base: inv.Base1, Rate: inv.Rate1, Quota: inv.Quota1, Surcharge: inv.Surcharge1},
		{Base: inv.Base2, Rate: inv.Rate2, Quota: inv.Quota2, Surcharge: inv.Surcharge2},
		{Base: inv.Base3, Rate: inv.Rate3, Quota: inv.Quota3, Surcharge: inv.Surcharge3},
	}
}

// DisplayName is the file name shown in listings.
func (inv *Invoice) DisplayName() string {
	if inv.FileName != nil && strings.TrimSpace(*inv.FileName) != "" {
		return *inv.FileName
	}
	return inv.DocumentID
}

// Clone returns a copy that shares no pointers with inv.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	out := *inv
	out.Number = cloneString(inv.Number)
	out.FileName = cloneString(inv.FileName)
	out.ClientName = cloneString(inv.ClientName)
	out.ProviderName = cloneString(inv.ProviderName)
	out.Date = cloneString(inv.Date)
	out.IssuerTaxID = cloneString(inv.IssuerTaxID)
	out.ReceiverTaxID = cloneString(inv.ReceiverTaxID)
	out.LateralTaxID = cloneString(inv.LateralTaxID)
	out.Base1 = cloneFloat(inv.Base1)
	out.Rate1 = cloneFloat(inv.Rate1)
	out.Quota1 = cloneFloat(inv.Quota1)
	out.Surcharge1 = cloneFloat(inv.Surcharge1)
	out.Base2 = cloneFloat(inv.Base2)
	out.Rate2 = cloneFloat(inv.Rate2)
	out.Quota2 = cloneFloat(inv.Quota2)
	out.Surcharge2 = cloneFloat(inv.Surcharge2)
	out.Base3 = cloneFloat(inv.Base3)
	out.Rate3 = cloneFloat(inv.Rate3)
	out.Quota3 = cloneFloat(inv.Quota3)
	out.Surcharge3 = cloneFloat(inv.Surcharge3)
	out.WithholdingBase = cloneFloat(inv.WithholdingBase)
	out.WithholdingPercent = cloneFloat(inv.WithholdingPercent)
	out.WithholdingQuota = cloneFloat(inv.WithholdingQuota)
	out.Total = cloneFloat(inv.Total)
	out.LedgerAccount = cloneFloat(inv.LedgerAccount)
	out.EntryNumber = cloneFloat(inv.EntryNumber)
	out.PaymentMethod = cloneString(inv.PaymentMethod)
	out.Prefix = cloneString(inv.Prefix)
	out.Length = cloneString(inv.Length)
	out.Type = cloneString(inv.Type)
	out.URL = cloneString(inv.URL)
	out.CompanyCode = cloneString(inv.CompanyCode)
	out.ErrorCode = cloneString(inv.ErrorCode)
	out.Timestamp = cloneString(inv.Timestamp)
	out.UserID = cloneInt(inv.UserID)
	out.SessionID = cloneInt(inv.SessionID)
	return &out
}

// String returns a pointer to s.
func String(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to i.
func Int(i int64) *int64 { return &i }

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneInt(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
