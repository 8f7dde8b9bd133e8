package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"aushadhi/m/internal/importer"
)

const maxUploadSize = 20 << 20 // 20 MiB

// parseImport decodes an uploaded spreadsheet and returns canonical
// records for client-side review. Nothing is persisted here.
func (h *Handler) parseImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	result, err := importer.Parse(header.Filename, file)
	if err != nil {
		switch err.(type) {
		case *importer.MissingColumnsError:
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			if err == importer.ErrNoData || err == importer.ErrLegacyXLS {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			h.log.WithError(err).WithField("file", header.Filename).Error("import parse failed")
			respondError(w, http.StatusBadRequest, "failed to parse file")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(result.Records),
		"dropped": result.Dropped,
		"records": result.Records,
	})
}

// importItem is one reviewed row sent back for commit. Expiry arrives
// as the raw cell text and is normalized server-side.
type importItem struct {
	Batch        string  `json:"batch"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Quantity     int64   `json:"quantity"`
	Expiry       string  `json:"expiry,omitempty"`
	Category     string  `json:"category,omitempty"`
	Form         string  `json:"form,omitempty"`
	PackSize     string  `json:"pack_size,omitempty"`
	Diseases     string  `json:"diseases,omitempty"`
	Symptoms     string  `json:"symptoms,omitempty"`
	SideEffects  string  `json:"side_effects,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
	Description  string  `json:"description,omitempty"`
	Manufacturer string  `json:"manufacturer,omitempty"`
}

func (it importItem) toRecord() importer.Record {
	rec := importer.Record{
		BatchID:      it.Batch,
		Name:         it.Name,
		Price:        it.Price,
		Quantity:     it.Quantity,
		Expiry:       importer.NormalizeExpiryDate(it.Expiry),
		Category:     it.Category,
		Form:         it.Form,
		PackSize:     it.PackSize,
		Diseases:     it.Diseases,
		Symptoms:     it.Symptoms,
		SideEffects:  it.SideEffects,
		Instructions: it.Instructions,
		Description:  it.Description,
		Manufacturer: it.Manufacturer,
	}
	if rec.Price < 0 {
		rec.Price = 0
	}
	if rec.Quantity < 0 {
		rec.Quantity = 0
	}
	return rec
}

type commitPayload struct {
	Items          []importItem `json:"items"`
	SourceFileName string       `json:"source_file_name"`
}

// commitImport merges reviewed records into the caller's inventory.
// Rows without a batch id get an auto-generated one, matching the
// review flow where hand-entered rows may not carry a batch yet.
func (h *Handler) commitImport(w http.ResponseWriter, r *http.Request) {
	var req commitPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "items array is required")
		return
	}

	records := make([]importer.Record, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Name == "" {
			respondError(w, http.StatusBadRequest, "every item needs a name")
			return
		}
		if item.Batch == "" {
			item.Batch = "AUTO-" + uuid.NewString()[:8]
		}
		records = append(records, item.toRecord())
	}

	importID := uuid.NewString()
	summary, err := h.store.MergeImport(callerID(r), records, importID, req.SourceFileName)
	if err != nil {
		h.log.WithError(err).Error("import commit failed")
		respondError(w, http.StatusInternalServerError, "failed to commit import")
		return
	}

	h.log.WithFields(logrus.Fields{
		"user_id":   callerID(r),
		"import_id": importID,
		"new":       summary.New,
		"updated":   summary.Updated,
	}).Info("import committed")
	respondJSON(w, http.StatusOK, map[string]any{"import_id": importID, "summary": summary})
}

type manualPayload struct {
	Medicines []importItem `json:"medicines"`
}

// manualImport merges hand-entered rows. Unlike commit, every row must
// already carry a batch id and name.
func (h *Handler) manualImport(w http.ResponseWriter, r *http.Request) {
	var req manualPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Medicines) == 0 {
		respondError(w, http.StatusBadRequest, "medicines array is required")
		return
	}

	records := make([]importer.Record, 0, len(req.Medicines))
	for _, item := range req.Medicines {
		if item.Batch == "" || item.Name == "" {
			respondError(w, http.StatusBadRequest, "batch and name are required for all rows")
			return
		}
		records = append(records, item.toRecord())
	}

	importID := uuid.NewString()
	summary, err := h.store.MergeImport(callerID(r), records, importID, "manual")
	if err != nil {
		h.log.WithError(err).Error("manual import failed")
		respondError(w, http.StatusInternalServerError, "failed to save medicines")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"import_id": importID, "summary": summary})
}

func (h *Handler) rollbackImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImportID string `json:"import_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ImportID == "" {
		respondError(w, http.StatusBadRequest, "import_id is required")
		return
	}

	result, err := h.store.RollbackImport(callerID(r), req.ImportID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to roll back import")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
