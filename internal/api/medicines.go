package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"

	"aushadhi/m/domain"
	"aushadhi/m/internal/importer"
	"aushadhi/m/internal/store"
)

func (h *Handler) searchMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.store.Search(callerID(r), r.URL.Query().Get("query"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to search medicines")
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

type medicineUpdateRequest struct {
	Name         string  `json:"name" validate:"required"`
	Price        float64 `json:"price" validate:"gte=0"`
	Quantity     int64   `json:"quantity" validate:"gte=0"`
	Expiry       string  `json:"expiry"`
	Category     string  `json:"category"`
	Form         string  `json:"form"`
	PackSize     string  `json:"pack_size"`
	Diseases     string  `json:"diseases"`
	Symptoms     string  `json:"symptoms"`
	SideEffects  string  `json:"side_effects"`
	Instructions string  `json:"instructions"`
	Description  string  `json:"description"`
	Manufacturer string  `json:"manufacturer"`
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	var req medicineUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "name is required; price and quantity must not be negative")
		return
	}

	expiry := importer.NormalizeExpiryDate(req.Expiry)
	var expiryDate *string
	if expiry.Normalized != "" {
		expiryDate = &expiry.Normalized
	}

	err := h.store.Update(callerID(r), batchID, domain.Medicine{
		Name:         req.Name,
		Price:        req.Price,
		Quantity:     req.Quantity,
		ExpiryDate:   expiryDate,
		ExpiryRaw:    expiry.Raw,
		Category:     req.Category,
		Form:         req.Form,
		PackSize:     req.PackSize,
		Diseases:     req.Diseases,
		Symptoms:     req.Symptoms,
		SideEffects:  req.SideEffects,
		Instructions: req.Instructions,
		Description:  req.Description,
		Manufacturer: req.Manufacturer,
	})
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update medicine")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(callerID(r), chi.URLParam(r, "batchID"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete medicine")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(callerID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list categories")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(callerID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

var exportHeaders = []string{
	"Batch_ID", "Name of Medicine", "Price (INR)", "Total Quantity", "Expiry",
	"Category", "Medicine Forms", "Quantity_per_pack", "Cover Disease",
	"Symptoms", "Side Effects", "Instructions", "Description in Hinglish", "Manufacturer",
}

func exportRow(m domain.Medicine) []string {
	expiry := m.ExpiryRaw
	if m.ExpiryDate != nil {
		expiry = *m.ExpiryDate
	}
	return []string{
		m.BatchID, m.Name,
		strconv.FormatFloat(m.Price, 'f', -1, 64),
		strconv.FormatInt(m.Quantity, 10),
		expiry,
		m.Category, m.Form, m.PackSize, m.Diseases,
		m.Symptoms, m.SideEffects, m.Instructions, m.Description, m.Manufacturer,
	}
}

// exportInventory streams the caller's inventory as a spreadsheet. The
// column headers mirror the import aliases, so an export re-imports
// cleanly.
func (h *Handler) exportInventory(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.store.Search(callerID(r), "")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load inventory")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="inventory.csv"`)
		writer := csv.NewWriter(w)
		_ = writer.Write(exportHeaders)
		for _, m := range medicines {
			_ = writer.Write(exportRow(m))
		}
		writer.Flush()
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &exportHeaders); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build export")
		return
	}
	for i, m := range medicines {
		row := exportRow(m)
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to build export")
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory.xlsx"`)
	if err := f.Write(w); err != nil {
		h.log.WithError(err).Error("inventory export failed")
	}
}
