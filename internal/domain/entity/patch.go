package entity

// Patch is a partial update of an Invoice. A nil field is absent and leaves
// the current value untouched; a non-nil field overwrites it.
type Patch struct {
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
	ErrorCode     *string `json:"error_code"`
	Valid         *bool   `json:"valid"`
}

// IsEmpty reports whether the patch carries no field at all.
func (p *Patch) IsEmpty() bool {
	return p == nil || *p == Patch{}
}

// Merge returns a copy of inv with every present patch field applied.
// inv itself is not modified.
func (inv *Invoice) Merge(p *Patch) *Invoice {
	out := inv.Clone()
	if p == nil {
		return out
	}

	out.Number = pickString(p.Number, out.Number)
	out.FileName = pickString(p.FileName, out.FileName)
	out.ClientName = pickString(p.ClientName, out.ClientName)
	out.ProviderName = pickString(p.ProviderName, out.ProviderName)
	out.Date = pickString(p.Date, out.Date)
	out.IssuerTaxID = pickString(p.IssuerTaxID, out.IssuerTaxID)
	out.ReceiverTaxID = pickString(p.ReceiverTaxID, out.ReceiverTaxID)
	out.LateralTaxID = pickString(p.LateralTaxID, out.LateralTaxID)

	out.Base1 = pickFloat(p.Base1, out.Base1)
	out.Rate1 = pickFloat(p.Rate1, out.Rate1)
	out.Quota1 = pickFloat(p.Quota1, out.Quota1)
	out.Surcharge1 = pickFloat(p.Surcharge1, out.Surcharge1)
	out.Base2 = pickFloat(p.Base2, out.Base2)
	out.Rate2 = pickFloat(p.Rate2, out.Rate2)
	out.Quota2 = pickFloat(p.Quota2, out.Quota2)
	out.Surcharge2 = pickFloat(p.Surcharge2, out.Surcharge2)
	out.Base3 = pickFloat(p.Base3, out.Base3)
	out.Rate3 = pickFloat(p.Rate3, out.Rate3)
	out.Quota3 = pickFloat(p.Quota3, out.Quota3)
	out.Surcharge3 = pickFloat(p.Surcharge3, out.Surcharge3)

	out.WithholdingBase = pickFloat(p.WithholdingBase, out.WithholdingBase)
	out.WithholdingPercent = pickFloat(p.WithholdingPercent, out.WithholdingPercent)
	out.WithholdingQuota = pickFloat(p.WithholdingQuota, out.WithholdingQuota)

	out.Total = pickFloat(p.Total, out.Total)
	out.LedgerAccount = pickFloat(p.LedgerAccount, out.LedgerAccount)
	out.EntryNumber = pickFloat(p.EntryNumber, out.EntryNumber)

	out.PaymentMethod = pickString(p.PaymentMethod, out.PaymentMethod)
	out.Prefix = pickString(p.Prefix, out.Prefix)
	out.Length = pickString(p.Length, out.Length)
	out.Type = pickString(p.Type, out.Type)
	out.URL = pickString(p.URL, out.URL)
	out.ErrorCode = pickString(p.ErrorCode, out.ErrorCode)
	if p.Valid != nil {
		out.Valid = *p.Valid
	}

	return out
}

func pickString(incoming, current *string) *string {
	if incoming != nil {
		v := *incoming
		return &v
	}
	return current
}

func pickFloat(incoming, current *float64) *float64 {
	if incoming != nil {
		v := *incoming
		return &v
	}
	return current
}
