package domain

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	StatusActive = "active"
	StatusPaused = "paused"
)

type User struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	StoreName string `db:"store_name" json:"store_name"`
	Email     string `db:"email" json:"email"`
	Password  string `db:"password" json:"-"`
	Phone     string `db:"phone" json:"phone,omitempty"`
	Address   string `db:"address" json:"address,omitempty"`
	Role      string `db:"role" json:"role"`
	Status    string `db:"status" json:"status"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// RegistrationRequest is a pending signup awaiting admin approval.
type RegistrationRequest struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	StoreName string `db:"store_name" json:"store_name"`
	Email     string `db:"email" json:"email"`
	Phone     string `db:"phone" json:"phone,omitempty"`
	Address   string `db:"address" json:"address,omitempty"`
	CreatedAt string `db:"created_at" json:"created_at"`
}
