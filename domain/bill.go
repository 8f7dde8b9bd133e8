package domain

type Bill struct {
	ID            int64   `db:"id" json:"id"`
	UserID        int64   `db:"user_id" json:"-"`
	Number        string  `db:"number" json:"number"`
	CustomerEmail *string `db:"customer_email" json:"customer_email,omitempty"`
	Subtotal      float64 `db:"subtotal" json:"subtotal"`
	GST           float64 `db:"gst" json:"gst"`
	Total         float64 `db:"total" json:"total"`
	CreatedAt     string  `db:"created_at" json:"created_at"`
}

type BillItem struct {
	ID       int64   `db:"id" json:"id"`
	BillID   int64   `db:"bill_id" json:"bill_id"`
	BatchID  string  `db:"batch_id" json:"batch_id"`
	Name     string  `db:"name" json:"name"`
	Price    float64 `db:"price" json:"price"`
	Quantity int64   `db:"quantity" json:"quantity"`
	Subtotal float64 `db:"subtotal" json:"subtotal"`
}
