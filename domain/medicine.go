package domain

// Import status values stamped by the inventory merge step.
const (
	ImportStatusNew     = "new"
	ImportStatusUpdated = "updated"
)

// Medicine is one batch of stock in a store's inventory. BatchID is the
// natural key within a user's inventory: imports insert or update on it.
type Medicine struct {
	ID       int64   `db:"id" json:"id"`
	UserID   int64   `db:"user_id" json:"-"`
	BatchID  string  `db:"batch_id" json:"batch_id"`
	Name     string  `db:"name" json:"name"`
	Price    float64 `db:"price" json:"price"`
	Quantity int64   `db:"quantity" json:"quantity"`

	// ExpiryDate is an ISO YYYY-MM-DD date, nil when the source value was
	// absent or unparseable. ExpiryRaw keeps the original cell text so an
	// unparseable date is never lost.
	ExpiryDate *string `db:"expiry_date" json:"expiry_date"`
	ExpiryRaw  string  `db:"expiry_raw" json:"expiry_raw,omitempty"`

	Category     string `db:"category" json:"category,omitempty"`
	Form         string `db:"form" json:"form,omitempty"`
	PackSize     string `db:"pack_size" json:"pack_size,omitempty"`
	Diseases     string `db:"diseases" json:"diseases,omitempty"`
	Symptoms     string `db:"symptoms" json:"symptoms,omitempty"`
	SideEffects  string `db:"side_effects" json:"side_effects,omitempty"`
	Instructions string `db:"instructions" json:"instructions,omitempty"`
	Description  string `db:"description" json:"description,omitempty"`
	Manufacturer string `db:"manufacturer" json:"manufacturer,omitempty"`

	ImportStatus string `db:"import_status" json:"import_status,omitempty"`
	ImportID     string `db:"import_id" json:"import_id,omitempty"`
	SourceFile   string `db:"source_file" json:"source_file,omitempty"`
	CreatedAt    string `db:"created_at" json:"created_at"`
	UpdatedAt    string `db:"updated_at" json:"updated_at"`
}
