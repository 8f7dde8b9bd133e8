package importer

import (
	"strconv"
	"strings"
)

// Field names one canonical attribute of a medicine record.
type Field string

const (
	FieldBatchID      Field = "batch_id"
	FieldName         Field = "name"
	FieldPrice        Field = "price"
	FieldQuantity     Field = "quantity"
	FieldExpiry       Field = "expiry"
	FieldCategory     Field = "category"
	FieldForm         Field = "form"
	FieldPackSize     Field = "pack_size"
	FieldDiseases     Field = "diseases"
	FieldSymptoms     Field = "symptoms"
	FieldSideEffects  Field = "side_effects"
	FieldInstructions Field = "instructions"
	FieldDescription  Field = "description"
	FieldManufacturer Field = "manufacturer"
)

type columnSpec struct {
	field    Field
	label    string
	aliases  []string
	required bool
	numeric  bool
}

// columnTable maps each canonical field to the header spellings seen in
// the wild. Matching is normalized, so case and punctuation variants of
// any alias also match.
var columnTable = []columnSpec{
	{FieldBatchID, "Batch_ID", []string{"Batch_ID", "BatchID", "batch_id", "Batch", "Batch Number"}, true, false},
	{FieldName, "Name of Medicine", []string{"Name of Medicine", "Name", "Medicine Name", "medicine_name"}, true, false},
	{FieldPrice, "Price (INR)", []string{"Price (INR)", "Price_INR", "Price", "price_inr", "Price INR", "Rate", "MRP"}, true, true},
	{FieldQuantity, "Total Quantity", []string{"Total Quantity", "Total_Quantity", "Quantity", "quantity", "Total qty", "Total_qty", "Qty"}, true, true},
	{FieldExpiry, "Expiry", []string{"Expiry", "Expiry Date", "Expiry_date", "expiryDate", "expiry_date", "Exp Date", "Exp"}, false, false},
	{FieldCategory, "Category", []string{"Category"}, false, false},
	{FieldForm, "Medicine Forms", []string{"Medicine Forms", "Form", "Medicine Form"}, false, false},
	{FieldPackSize, "Quantity_per_pack", []string{"Quantity_per_pack", "Pack Size", "Quantity per pack"}, false, false},
	{FieldDiseases, "Cover Disease", []string{"Cover Disease", "Diseases", "Covered Diseases"}, false, false},
	{FieldSymptoms, "Symptoms", []string{"Symptoms"}, false, false},
	{FieldSideEffects, "Side Effects", []string{"Side Effects", "Side_Effects"}, false, false},
	{FieldInstructions, "Instructions", []string{"Instructions"}, false, false},
	{FieldDescription, "Description in Hinglish", []string{"Description in Hinglish", "Description"}, false, false},
	{FieldManufacturer, "Manufacturer", []string{"Manufacturer", "Company", "Mfg"}, false, false},
}

// normalizeHeader lower-cases and keeps only letters and digits, so
// "Price (INR)", "price_inr" and "PRICE INR" all compare equal.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateHeaders checks the header row against the required canonical
// fields and returns the human-readable labels of any that are missing.
// It looks at headers only; a present column with empty cells passes.
func ValidateHeaders(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		if n := normalizeHeader(h); n != "" {
			present[n] = true
		}
	}

	var missing []string
	for _, spec := range columnTable {
		if !spec.required {
			continue
		}
		found := false
		for _, alias := range spec.aliases {
			if present[normalizeHeader(alias)] {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, spec.label)
		}
	}
	return missing
}

// Record is one accepted row in canonical shape.
type Record struct {
	BatchID      string     `json:"batch_id"`
	Name         string     `json:"name"`
	Price        float64    `json:"price"`
	Quantity     int64      `json:"quantity"`
	Expiry       DateResult `json:"expiry"`
	Category     string     `json:"category,omitempty"`
	Form         string     `json:"form,omitempty"`
	PackSize     string     `json:"pack_size,omitempty"`
	Diseases     string     `json:"diseases,omitempty"`
	Symptoms     string     `json:"symptoms,omitempty"`
	SideEffects  string     `json:"side_effects,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Description  string     `json:"description,omitempty"`
	Manufacturer string     `json:"manufacturer,omitempty"`
}

// ExtractRow resolves one raw row into canonical shape. The second
// return is false when the row lacks a batch id or name, in which case
// the caller drops it as noise rather than reporting an error.
func ExtractRow(row map[string]any) (Record, bool) {
	var rec Record
	for _, spec := range columnTable {
		val := resolveValue(row, spec.aliases)
		switch spec.field {
		case FieldBatchID:
			rec.BatchID = coerceString(val)
		case FieldName:
			rec.Name = coerceString(val)
		case FieldPrice:
			rec.Price = coerceNumber(val)
		case FieldQuantity:
			rec.Quantity = int64(coerceNumber(val))
		case FieldExpiry:
			rec.Expiry = NormalizeExpiryDate(val)
		case FieldCategory:
			rec.Category = coerceString(val)
		case FieldForm:
			rec.Form = coerceString(val)
		case FieldPackSize:
			rec.PackSize = coerceString(val)
		case FieldDiseases:
			rec.Diseases = coerceString(val)
		case FieldSymptoms:
			rec.Symptoms = coerceString(val)
		case FieldSideEffects:
			rec.SideEffects = coerceString(val)
		case FieldInstructions:
			rec.Instructions = coerceString(val)
		case FieldDescription:
			rec.Description = coerceString(val)
		case FieldManufacturer:
			rec.Manufacturer = coerceString(val)
		}
	}
	return rec, rec.BatchID != "" && rec.Name != ""
}

// resolveValue scans the row's keys for each alias in turn and returns
// the first non-nil, non-empty cell. A matching alias with an empty cell
// does not stop the scan.
func resolveValue(row map[string]any, aliases []string) any {
	for _, alias := range aliases {
		want := normalizeHeader(alias)
		for key, val := range row {
			if normalizeHeader(key) != want {
				continue
			}
			if val == nil {
				continue
			}
			if s, ok := val.(string); ok && strings.TrimSpace(s) == "" {
				continue
			}
			return val
		}
	}
	return nil
}

func coerceString(val any) string {
	if val == nil {
		return ""
	}
	return strings.TrimSpace(stringify(val))
}

// coerceNumber parses numeric cells, defaulting to 0 for missing or
// non-numeric values. Negative values clamp to 0: prices and quantities
// are non-negative by contract.
func coerceNumber(val any) float64 {
	var f float64
	switch v := val.(type) {
	case nil:
		return 0
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(stringify(val)), 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if f < 0 {
		return 0
	}
	return f
}
