package importer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Batch_ID", "batchid"},
		{"BATCH ID", "batchid"},
		{"batch-id", "batchid"},
		{"Price (INR)", "priceinr"},
		{"price_inr", "priceinr"},
		{"  Total Quantity!!  ", "totalquantity"},
		{"___", ""},
		{"Qty123", "qty123"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, normalizeHeader(tc.in), "input %q", tc.in)
	}
}

func TestValidateHeaders_AliasSpellings(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		missing []string
	}{
		{
			name:    "canonical spellings",
			headers: []string{"Batch_ID", "Name of Medicine", "Price (INR)", "Total Quantity"},
		},
		{
			name:    "loose spellings",
			headers: []string{"BatchID", "Medicine Name", "Price", "Qty"},
		},
		{
			name:    "punctuation and casing noise",
			headers: []string{"batch-id!", "MEDICINE_NAME", "price (inr)", "total qty"},
		},
		{
			name:    "extra columns ignored",
			headers: []string{"Sl No", "Batch_ID", "Name", "Price", "Quantity", "Remarks"},
		},
		{
			name:    "missing price and quantity",
			headers: []string{"Batch_ID", "Name of Medicine"},
			missing: []string{"Price (INR)", "Total Quantity"},
		},
		{
			name:    "nothing matches",
			headers: []string{"Foo", "Bar"},
			missing: []string{"Batch_ID", "Name of Medicine", "Price (INR)", "Total Quantity"},
		},
		{
			name:    "empty header row",
			headers: nil,
			missing: []string{"Batch_ID", "Name of Medicine", "Price (INR)", "Total Quantity"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.missing, ValidateHeaders(tc.headers))
		})
	}
}

// Shuffling the header row must never change the validation outcome.
func TestValidateHeaders_OrderIndependent(t *testing.T) {
	headers := []string{"Remarks", "Batch_ID", "Medicine Name", "Price INR", "Total_qty", "Expiry"}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), headers...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Empty(t, ValidateHeaders(shuffled), "shuffle %d: %v", i, shuffled)
	}
}

func TestExtractRow(t *testing.T) {
	rec, ok := ExtractRow(map[string]any{
		"BatchID":       "B-100",
		"Medicine Name": "Paracetamol",
		"price (inr)":   "12.50",
		"Total qty":     "40",
		"Expiry Date":   "09-2026",
		"Category":      "Analgesic",
	})
	require.True(t, ok)
	assert.Equal(t, "B-100", rec.BatchID)
	assert.Equal(t, "Paracetamol", rec.Name)
	assert.Equal(t, 12.5, rec.Price)
	assert.Equal(t, int64(40), rec.Quantity)
	assert.Equal(t, "2026-09-30", rec.Expiry.Normalized)
	assert.Equal(t, FormatMonthYear, rec.Expiry.Format)
	assert.Equal(t, "Analgesic", rec.Category)
}

func TestExtractRow_NonEmptyAliasWins(t *testing.T) {
	// An alias that matches but holds an empty cell must not shadow a
	// later alias with data.
	rec, ok := ExtractRow(map[string]any{
		"Batch_ID":      "",
		"Batch":         "B-7",
		"Name":          "Cetirizine",
		"Price":         10,
		"Quantity":      5,
		"Expiry":        "",
		"expiryDate":    "15/01/2025",
	})
	require.True(t, ok)
	assert.Equal(t, "B-7", rec.BatchID)
	assert.Equal(t, "2025-01-15", rec.Expiry.Normalized)
}

func TestExtractRow_NumericDefaults(t *testing.T) {
	rec, ok := ExtractRow(map[string]any{
		"Batch_ID": "B-1",
		"Name":     "Ibuprofen",
		"Price":    "free",
		"Quantity": nil,
	})
	require.True(t, ok)
	assert.Equal(t, float64(0), rec.Price)
	assert.Equal(t, int64(0), rec.Quantity)
	assert.Equal(t, FormatEmpty, rec.Expiry.Format)
}

func TestExtractRow_ClampsNegatives(t *testing.T) {
	rec, ok := ExtractRow(map[string]any{
		"Batch_ID": "B-2",
		"Name":     "Amoxicillin",
		"Price":    "-30",
		"Quantity": float64(-4),
	})
	require.True(t, ok)
	assert.Equal(t, float64(0), rec.Price)
	assert.Equal(t, int64(0), rec.Quantity)
}

func TestExtractRow_DropsIncompleteRows(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]any
	}{
		{"missing batch", map[string]any{"Batch_ID": "", "Name of Medicine": "Paracetamol"}},
		{"missing name", map[string]any{"Batch_ID": "B-1", "Name of Medicine": ""}},
		{"empty row", map[string]any{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := ExtractRow(tc.row)
			assert.False(t, ok)
		})
	}
}
