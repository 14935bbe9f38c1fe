package invoice

// controlLabels holds the operator label of each editable field.
var controlLabels = map[string]string{
	"numero_factura":       "Número de Factura",
	"nombre_factura":       "Nombre de Factura",
	"nombre_cliente":       "Nombre Cliente",
	"nombre_proveedor":     "Nombre Proveedor",
	"fecha":                "Fecha",
	"nif_emision":          "NIF Emisor",
	"nif_receptor":         "NIF Receptor",
	"cif_lateral":          "CIF Lateral",
	"base1":                "Base 1",
	"iva1":                 "IVA 1",
	"cuota1":               "Cuota 1",
	"recargo1":             "Recargo 1",
	"base2":                "Base 2",
	"iva2":                 "IVA 2",
	"cuota2":               "Cuota 2",
	"recargo2":             "Recargo 2",
	"base3":                "Base 3",
	"iva3":                 "IVA 3",
	"cuota3":               "Cuota 3",
	"recargo3":             "Recargo 3",
	"base_retencion":       "Base Retención",
	"porcentaje_retencion": "% Retención",
	"cuota_retencion":      "Cuota Retención",
	"importe_total":        "Importe Total",
	"metodo_pago":          "Método de Pago",
	"prefijo":              "Prefijo",
	"cuenta_contable":      "Cuenta Contable",
	"num_apunte":           "Número de Asiento",
	"longitud":             "Longitud",
	"tipo":                 "Tipo",
}

// EditableFields lists the editable fields in form order.
var EditableFields = []string{
	"numero_factura", "nombre_factura", "nombre_cliente", "nombre_proveedor",
	"fecha", "nif_emision", "nif_receptor", "cif_lateral",
	"base1", "iva1", "cuota1", "recargo1",
	"base2", "iva2", "cuota2", "recargo2",
	"base3", "iva3", "cuota3", "recargo3",
	"base_retencion", "porcentaje_retencion", "cuota_retencion",
	"importe_total", "metodo_pago", "prefijo", "cuenta_contable",
	"num_apunte", "longitud", "tipo",
}

// ControlLabel returns the operator label of a field, or name itself when the
// field has none.
func ControlLabel(name string) string {
	if label, ok := controlLabels[name]; ok {
		return label
	}
	return name
}
