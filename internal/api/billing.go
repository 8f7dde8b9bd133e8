package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"aushadhi/m/domain"
)

type billItemRequest struct {
	Batch    string  `json:"batch" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int64   `json:"quantity" validate:"gt=0"`
}

type billRequest struct {
	Items         []billItemRequest `json:"items" validate:"required,min=1,dive"`
	Subtotal      float64           `json:"subtotal"`
	GST           float64           `json:"gst"`
	Total         float64           `json:"total"`
	CustomerEmail string            `json:"customer_email"`
}

// createBill stores a bill and decrements stock for each sold batch.
// Quantities clamp at zero; batches not present in the inventory are
// billed anyway without a stock adjustment.
func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "each item needs batch, name and a positive quantity")
		return
	}
	userID := callerID(r)

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to start billing")
		return
	}
	defer tx.Rollback()

	for _, item := range req.Items {
		var current int64
		err := tx.Get(&current, `SELECT quantity FROM medicines WHERE user_id = ? AND batch_id = ?`, userID, item.Batch)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to read inventory")
			return
		}
		newQty := current - item.Quantity
		if newQty < 0 {
			newQty = 0
		}
		if _, err := tx.Exec(`UPDATE medicines SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND batch_id = ?`,
			newQty, userID, item.Batch); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to update inventory")
			return
		}
	}

	number := "INV-" + strings.ToUpper(uuid.NewString()[:8])
	var customerEmail *string
	if e := strings.TrimSpace(req.CustomerEmail); e != "" {
		lower := strings.ToLower(e)
		customerEmail = &lower
	}

	var billID int64
	err = tx.QueryRowx(`INSERT INTO bills (user_id, number, customer_email, subtotal, gst, total)
        VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		userID, number, customerEmail, req.Subtotal, req.GST, req.Total).Scan(&billID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create bill")
		return
	}

	for _, item := range req.Items {
		subtotal := float64(item.Quantity) * item.Price
		if _, err := tx.Exec(`INSERT INTO bill_items (bill_id, batch_id, name, price, quantity, subtotal)
            VALUES (?, ?, ?, ?, ?, ?)`,
			billID, item.Batch, item.Name, item.Price, item.Quantity, subtotal); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to save bill items")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to finalize bill")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"bill_id": billID,
		"number":  number,
		"total":   req.Total,
	})
}

type billHistoryEntry struct {
	domain.Bill
	Items []domain.BillItem `json:"items"`
}

func (h *Handler) billingHistory(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)

	var bills []domain.Bill
	if err := h.db.Select(&bills, `SELECT * FROM bills WHERE user_id = ? ORDER BY created_at DESC`, userID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch billing history")
		return
	}
	if len(bills) == 0 {
		respondJSON(w, http.StatusOK, []billHistoryEntry{})
		return
	}

	ids := make([]int64, len(bills))
	for i, bill := range bills {
		ids[i] = bill.ID
	}
	itemsQuery, itemsArgs, err := sqlx.In(`SELECT * FROM bill_items WHERE bill_id IN (?)`, ids)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to prepare bill items query")
		return
	}
	itemsQuery = h.db.Rebind(itemsQuery)

	var items []domain.BillItem
	if err := h.db.Select(&items, itemsQuery, itemsArgs...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load bill items")
		return
	}
	itemsByBill := make(map[int64][]domain.BillItem)
	for _, item := range items {
		itemsByBill[item.BillID] = append(itemsByBill[item.BillID], item)
	}

	history := make([]billHistoryEntry, len(bills))
	for i, bill := range bills {
		history[i] = billHistoryEntry{Bill: bill, Items: itemsByBill[bill.ID]}
	}
	respondJSON(w, http.StatusOK, history)
}

type dailySales struct {
	Date   string  `db:"date" json:"date"`
	Sales  float64 `db:"sales" json:"sales"`
	Orders int64   `db:"orders" json:"orders"`
}

// salesByDate aggregates the last 30 days of bills per calendar date.
func (h *Handler) salesByDate(w http.ResponseWriter, r *http.Request) {
	sales := []dailySales{}
	err := h.db.Select(&sales, `SELECT DATE(created_at) AS date,
        COALESCE(SUM(total), 0) AS sales, COUNT(*) AS orders
        FROM bills
        WHERE user_id = ? AND created_at >= DATETIME('now', '-30 days')
        GROUP BY DATE(created_at)
        ORDER BY date`, callerID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch sales data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

type topSellingEntry struct {
	BatchID       string  `db:"batch_id" json:"batch_id"`
	Name          string  `db:"name" json:"name"`
	UnitsSold     int64   `db:"units_sold" json:"units_sold"`
	Revenue       float64 `db:"revenue" json:"revenue"`
	CustomerCount int64   `db:"customer_count" json:"customer_count"`
	LastSoldAt    string  `db:"last_sold_at" json:"last_sold_at"`
}

// topSelling ranks the caller's medicines by units sold. Bills without
// a customer email count as a single walk-in customer.
func (h *Handler) topSelling(w http.ResponseWriter, r *http.Request) {
	entries := []topSellingEntry{}
	err := h.db.Select(&entries, `SELECT bi.batch_id,
        MAX(bi.name) AS name,
        SUM(bi.quantity) AS units_sold,
        SUM(bi.subtotal) AS revenue,
        COUNT(DISTINCT COALESCE(b.customer_email, 'walk-in')) AS customer_count,
        MAX(b.created_at) AS last_sold_at
        FROM bill_items bi
        JOIN bills b ON b.id = bi.bill_id
        WHERE b.user_id = ?
        GROUP BY bi.batch_id
        ORDER BY units_sold DESC
        LIMIT 10`, callerID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch top selling medicines")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"top_selling": entries})
}
