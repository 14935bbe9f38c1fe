package invoice

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/facturas-review/internal/domain/entity"
)

// FromRaw builds an invoice from a loosely typed pipeline row. Amounts go
// through ParseNumber and the date through ToInputDate; text fields are copied
// when present. Unknown keys are ignored.
func FromRaw(row map[string]interface{}) *entity.Invoice {
	inv := &entity.Invoice{}
	if row == nil {
		return inv
	}

	inv.Number = text(row, "numero_factura")
	inv.FileName = text(row, "nombre_factura")
	inv.ClientName = text(row, "nombre_cliente")
	inv.ProviderName = text(row, "nombre_proveedor")
	inv.Date = ToInputDate(text(row, "fecha"))
	inv.IssuerTaxID = text(row, "nif_emision")
	inv.ReceiverTaxID = text(row, "nif_receptor")
	inv.LateralTaxID = text(row, "cif_lateral")

	inv.Base1 = ParseNumber(row["base1"])
	inv.Rate1 = ParseNumber(row["iva1"])
	inv.Quota1 = ParseNumber(row["cuota1"])
	inv.Surcharge1 = ParseNumber(row["recargo1"])
	inv.Base2 = ParseNumber(row["base2"])
	inv.Rate2 = ParseNumber(row["iva2"])
	inv.Quota2 = ParseNumber(row["cuota2"])
	inv.Surcharge2 = ParseNumber(row["recargo2"])
	inv.Base3 = ParseNumber(row["base3"])
	inv.Rate3 = ParseNumber(row["iva3"])
	inv.Quota3 = ParseNumber(row["cuota3"])
	inv.Surcharge3 = ParseNumber(row["recargo3"])

	inv.WithholdingBase = ParseNumber(row["base_retencion"])
	inv.WithholdingPercent = ParseNumber(row["porcentaje_retencion"])
	inv.WithholdingQuota = ParseNumber(row["cuota_retencion"])

	inv.Total = ParseNumber(row["importe_total"])
	inv.LedgerAccount = ParseNumber(row["cuenta_contable"])
	inv.EntryNumber = ParseNumber(row["num_apunte"])

	inv.PaymentMethod = text(row, "metodo_pago")
	inv.Prefix = text(row, "prefijo")
	inv.Length = text(row, "longitud")
	inv.Type = text(row, "tipo")
	inv.URL = text(row, "url")
	inv.CompanyCode = text(row, "codigo_empresa")
	inv.ErrorCode = text(row, "error_code")
	if inv.ErrorCode == nil {
		inv.ErrorCode = text(row, "code_error")
	}

	inv.Valid = boolean(row["valid"])
	inv.Corrected = corrected(row["corregido"])
	inv.DocumentID = entity.Deref(text(row, "id_doc_drive"))
	inv.Timestamp = text(row, "timestamp")
	inv.UserID = integer(row["id_user"])
	inv.SessionID = integer(row["id_session"])
	inv.ReceivedAt = entity.Deref(text(row, "received_at"))
	inv.ClientIP = entity.Deref(text(row, "client_ip"))

	return inv
}

// FieldValue returns the value of an editable field by its wire name, or nil.
func FieldValue(inv *entity.Invoice, name string) interface{} {
	switch name {
	case "numero_factura":
		return deref(inv.Number)
	case "nombre_factura":
		return deref(inv.FileName)
	case "nombre_cliente":
		return deref(inv.ClientName)
	case "nombre_proveedor":
		return deref(inv.ProviderName)
	case "fecha":
		return deref(inv.Date)
	case "nif_emision":
		return deref(inv.IssuerTaxID)
	case "nif_receptor":
		return deref(inv.ReceiverTaxID)
	case "cif_lateral":
		return deref(inv.LateralTaxID)
	case "base1":
		return derefFloat(inv.Base1)
	case "iva1":
		return derefFloat(inv.Rate1)
	case "cuota1":
		return derefFloat(inv.Quota1)
	case "recargo1":
		return derefFloat(inv.Surcharge1)
	case "base2":
		return derefFloat(inv.Base2)
	case "iva2":
		return derefFloat(inv.Rate2)
	case "cuota2":
		return derefFloat(inv.Quota2)
	case "recargo2":
		return derefFloat(inv.Surcharge2)
	case "base3":
		return derefFloat(inv.Base3)
	case "iva3":
		return derefFloat(inv.Rate3)
	case "cuota3":
		return derefFloat(inv.Quota3)
	case "recargo3":
		return derefFloat(inv.Surcharge3)
	case "base_retencion":
		return derefFloat(inv.WithholdingBase)
	case "porcentaje_retencion":
		return derefFloat(inv.WithholdingPercent)
	case "cuota_retencion":
		return derefFloat(inv.WithholdingQuota)
	case "importe_total":
		return derefFloat(inv.Total)
	case "metodo_pago":
		return deref(inv.PaymentMethod)
	case "prefijo":
		return deref(inv.Prefix)
	case "cuenta_contable":
		return derefFloat(inv.LedgerAccount)
	case "num_apunte":
		return derefFloat(inv.EntryNumber)
	case "longitud":
		return deref(inv.Length)
	case "tipo":
		return deref(inv.Type)
	default:
		return nil
	}
}

func deref(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func derefFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func text(row map[string]interface{}, key string) *string {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	return &s
}

func boolean(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}

func corrected(v interface{}) entity.CorrectedStatus {
	if f := ParseNumber(v); f != nil {
		return entity.CorrectedStatus(int(*f))
	}
	return entity.CorrectedPending
}

func integer(v interface{}) *int64 {
	f := ParseNumber(v)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}
