// Package store persists tenant inventory. Every query is scoped by
// user id; batch id is the natural key for insert-vs-update decisions.
package store

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"aushadhi/m/domain"
	"aushadhi/m/internal/importer"
)

var ErrNotFound = errors.New("medicine not found")

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ImportSummary reports the outcome of one inventory merge.
type ImportSummary struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Updated int `json:"updated"`
}

// MergeImport upserts parsed records into the user's inventory keyed by
// batch id. New rows get import status "new", existing rows are
// overwritten and marked "updated". The merge is atomic: either every
// record lands or none do.
func (s *Store) MergeImport(userID int64, records []importer.Record, importID, sourceFile string) (ImportSummary, error) {
	summary := ImportSummary{Total: len(records)}

	tx, err := s.db.Beginx()
	if err != nil {
		return summary, err
	}
	defer tx.Rollback()

	for _, rec := range records {
		var existingID int64
		err := tx.Get(&existingID, `SELECT id FROM medicines WHERE user_id = ? AND batch_id = ?`, userID, rec.BatchID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.Exec(`INSERT INTO medicines
                (user_id, batch_id, name, price, quantity, expiry_date, expiry_raw,
                 category, form, pack_size, diseases, symptoms, side_effects,
                 instructions, description, manufacturer, import_status, import_id, source_file)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				userID, rec.BatchID, rec.Name, rec.Price, rec.Quantity,
				nullable(rec.Expiry.Normalized), rec.Expiry.Raw,
				rec.Category, rec.Form, rec.PackSize, rec.Diseases, rec.Symptoms,
				rec.SideEffects, rec.Instructions, rec.Description, rec.Manufacturer,
				domain.ImportStatusNew, importID, sourceFile)
			if err != nil {
				return summary, err
			}
			summary.New++
		case err != nil:
			return summary, err
		default:
			_, err = tx.Exec(`UPDATE medicines SET
                name = ?, price = ?, quantity = ?, expiry_date = ?, expiry_raw = ?,
                category = ?, form = ?, pack_size = ?, diseases = ?, symptoms = ?,
                side_effects = ?, instructions = ?, description = ?, manufacturer = ?,
                import_status = ?, import_id = ?, source_file = ?, updated_at = CURRENT_TIMESTAMP
                WHERE id = ?`,
				rec.Name, rec.Price, rec.Quantity,
				nullable(rec.Expiry.Normalized), rec.Expiry.Raw,
				rec.Category, rec.Form, rec.PackSize, rec.Diseases, rec.Symptoms,
				rec.SideEffects, rec.Instructions, rec.Description, rec.Manufacturer,
				domain.ImportStatusUpdated, importID, sourceFile, existingID)
			if err != nil {
				return summary, err
			}
			summary.Updated++
		}
	}

	return summary, tx.Commit()
}

// RollbackResult reports what a rollback could and could not undo.
type RollbackResult struct {
	Removed  int `json:"removed"`
	Retained int `json:"retained"`
}

// RollbackImport deletes records a given import inserted. Records the
// import updated in place keep their new values; they are counted so
// the caller can tell the rollback was partial.
func (s *Store) RollbackImport(userID int64, importID string) (RollbackResult, error) {
	var result RollbackResult

	res, err := s.db.Exec(`DELETE FROM medicines WHERE user_id = ? AND import_id = ? AND import_status = ?`,
		userID, importID, domain.ImportStatusNew)
	if err != nil {
		return result, err
	}
	removed, _ := res.RowsAffected()
	result.Removed = int(removed)

	var retained int
	if err := s.db.Get(&retained, `SELECT COUNT(*) FROM medicines WHERE user_id = ? AND import_id = ? AND import_status = ?`,
		userID, importID, domain.ImportStatusUpdated); err != nil {
		return result, err
	}
	result.Retained = retained
	return result, nil
}

// Search lists the user's inventory, optionally filtered by a substring
// of name, batch id or category.
func (s *Store) Search(userID int64, query string) ([]domain.Medicine, error) {
	medicines := []domain.Medicine{}
	query = strings.TrimSpace(query)
	if query == "" {
		err := s.db.Select(&medicines, `SELECT * FROM medicines WHERE user_id = ? ORDER BY name`, userID)
		return medicines, err
	}
	like := "%" + query + "%"
	err := s.db.Select(&medicines, `SELECT * FROM medicines
        WHERE user_id = ? AND (name LIKE ? OR batch_id LIKE ? OR category LIKE ?)
        ORDER BY name`, userID, like, like, like)
	return medicines, err
}

// Update overwrites the mutable fields of one medicine.
func (s *Store) Update(userID int64, batchID string, m domain.Medicine) error {
	res, err := s.db.Exec(`UPDATE medicines SET
        name = ?, price = ?, quantity = ?, expiry_date = ?, expiry_raw = ?,
        category = ?, form = ?, pack_size = ?, diseases = ?, symptoms = ?,
        side_effects = ?, instructions = ?, description = ?, manufacturer = ?,
        updated_at = CURRENT_TIMESTAMP
        WHERE user_id = ? AND batch_id = ?`,
		m.Name, m.Price, m.Quantity, m.ExpiryDate, m.ExpiryRaw,
		m.Category, m.Form, m.PackSize, m.Diseases, m.Symptoms,
		m.SideEffects, m.Instructions, m.Description, m.Manufacturer,
		userID, batchID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(userID int64, batchID string) error {
	res, err := s.db.Exec(`DELETE FROM medicines WHERE user_id = ? AND batch_id = ?`, userID, batchID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Categories returns the distinct non-empty categories in the user's
// inventory.
func (s *Store) Categories(userID int64) ([]string, error) {
	categories := []string{}
	err := s.db.Select(&categories, `SELECT DISTINCT category FROM medicines
        WHERE user_id = ? AND category != '' ORDER BY category`, userID)
	return categories, err
}

// Stats is the dashboard summary of one store's inventory.
type Stats struct {
	TotalMedicines int `db:"total_medicines" json:"total_medicines"`
	TotalStock     int `db:"total_stock" json:"total_stock"`
	OutOfStock     int `db:"out_of_stock" json:"out_of_stock"`
	ExpiringSoon   int `db:"expiring_soon" json:"expiring_soon"`
}

func (s *Store) Stats(userID int64) (Stats, error) {
	var stats Stats
	err := s.db.Get(&stats, `SELECT
        COUNT(*) AS total_medicines,
        COALESCE(SUM(quantity), 0) AS total_stock,
        COALESCE(SUM(CASE WHEN quantity = 0 THEN 1 ELSE 0 END), 0) AS out_of_stock,
        COALESCE(SUM(CASE WHEN expiry_date IS NOT NULL
            AND expiry_date >= DATE('now')
            AND expiry_date <= DATE('now', '+30 days') THEN 1 ELSE 0 END), 0) AS expiring_soon
        FROM medicines WHERE user_id = ?`, userID)
	return stats, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
