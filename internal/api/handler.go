package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"aushadhi/m/domain"
	"aushadhi/m/internal/config"
	"aushadhi/m/internal/store"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxEmail  ctxKey = "email"
	ctxRole   ctxKey = "role"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db            *sqlx.DB
	store         *store.Store
	secret        string
	adminEmail    string
	adminPassword string
	log           *logrus.Logger
	validate      *validator.Validate
}

// New constructs a Handler.
func New(db *sqlx.DB, cfg config.Config, log *logrus.Logger) *Handler {
	return &Handler{
		db:            db,
		store:         store.New(db),
		secret:        cfg.Secret,
		adminEmail:    strings.ToLower(cfg.AdminEmail),
		adminPassword: cfg.AdminPassword,
		log:           log,
		validate:      validator.New(),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/password", h.changePassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/admin", func(r chi.Router) {
			r.Get("/requests", h.listRequests)
			r.Post("/requests/approve", h.approveRequest)
			r.Post("/requests/reject", h.rejectRequest)
			r.Get("/users", h.listUsers)
			r.Post("/users/status", h.setUserStatus)
			r.Delete("/users/{id}", h.deleteUser)
		})

		pr.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.searchMedicines)
			r.Get("/categories", h.listCategories)
			r.Put("/{batchID}", h.updateMedicine)
			r.Delete("/{batchID}", h.deleteMedicine)
		})

		pr.Route("/import", func(r chi.Router) {
			r.Post("/parse", h.parseImport)
			r.Post("/commit", h.commitImport)
			r.Post("/manual", h.manualImport)
			r.Post("/rollback", h.rollbackImport)
		})

		pr.Route("/billing", func(r chi.Router) {
			r.Post("/", h.createBill)
			r.Get("/history", h.billingHistory)
			r.Get("/sales", h.salesByDate)
			r.Get("/top-selling", h.topSelling)
		})

		pr.Get("/dashboard/stats", h.dashboardStats)
		pr.Get("/export", h.exportInventory)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, email, role string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxEmail, claims.Email)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

func callerID(r *http.Request) int64 {
	return r.Context().Value(ctxUserID).(int64)
}

// Auth handlers

type registerRequest struct {
	Name      string `json:"name" validate:"required"`
	StoreName string `json:"store_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// register files a registration request; an admin approves it before
// the account can log in.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "name, store_name and a valid email are required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var exists int
	if err := h.db.Get(&exists, `SELECT COUNT(*) FROM users WHERE email = ?`, email); err == nil && exists > 0 {
		respondError(w, http.StatusConflict, "an account with this email already exists")
		return
	}
	if err := h.db.Get(&exists, `SELECT COUNT(*) FROM registration_requests WHERE email = ?`, email); err == nil && exists > 0 {
		respondError(w, http.StatusConflict, "a registration request with this email already exists")
		return
	}

	_, err := h.db.Exec(`INSERT INTO registration_requests (name, store_name, email, phone, address) VALUES (?, ?, ?, ?, ?)`,
		req.Name, req.StoreName, email, req.Phone, req.Address)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to file registration request")
		return
	}

	h.log.WithFields(logrus.Fields{"email": email, "store": req.StoreName}).Info("registration request filed")
	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "registration request filed, pending admin approval",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user,omitempty"`
	Role  string       `json:"role"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if email == h.adminEmail && req.Password == h.adminPassword {
		token, err := h.generateToken(0, email, domain.RoleAdmin)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to generate token")
			return
		}
		respondJSON(w, http.StatusOK, authResponse{Token: token, Role: domain.RoleAdmin})
		return
	}

	var user domain.User
	err := h.db.Get(&user, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		// A registrant awaiting approval has no users row yet; tell them
		// so, instead of a misleading credentials error.
		var pending int
		if err := h.db.Get(&pending, `SELECT COUNT(*) FROM registration_requests WHERE email = ?`, email); err == nil && pending > 0 {
			respondError(w, http.StatusForbidden, "your account is pending confirmation by an administrator")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if user.Status == domain.StatusPaused {
		respondError(w, http.StatusForbidden, "your account is paused, please contact your administrator")
		return
	}

	token, err := h.generateToken(user.ID, user.Email, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: &user, Role: user.Role})
}

type passwordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "new_password of at least 6 characters is required")
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	if _, err := h.db.Exec(`UPDATE users SET password = ? WHERE id = ?`, hashed, callerID(r)); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Admin handlers

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	requests := []domain.RegistrationRequest{}
	if err := h.db.Select(&requests, `SELECT * FROM registration_requests ORDER BY created_at`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list registration requests")
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

type approveRequestPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

// approveRequest turns a pending registration request into an active
// user. If no password is supplied one is generated and returned once
// in the response so the admin can hand it over.
func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req approveRequestPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	email := strings.ToLower(req.Email)

	var request domain.RegistrationRequest
	err := h.db.Get(&request, `SELECT * FROM registration_requests WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "registration request not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load registration request")
		return
	}

	password := req.Password
	generated := false
	if password == "" {
		password = uuid.NewString()[:8]
		generated = true
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to start approval")
		return
	}
	defer tx.Rollback()

	var userID int64
	err = tx.QueryRowx(`INSERT INTO users (name, store_name, email, password, phone, address, role, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		request.Name, request.StoreName, email, hashed, request.Phone, request.Address,
		domain.RoleUser, domain.StatusActive).Scan(&userID)
	if err != nil {
		respondError(w, http.StatusConflict, "user already exists")
		return
	}
	if _, err := tx.Exec(`DELETE FROM registration_requests WHERE id = ?`, request.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to remove registration request")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to complete approval")
		return
	}

	h.log.WithFields(logrus.Fields{"email": email, "user_id": userID}).Info("registration approved")
	resp := map[string]any{"user_id": userID, "email": email, "status": "approved"}
	if generated {
		resp["password"] = password
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.db.Exec(`DELETE FROM registration_requests WHERE email = ?`, strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to reject registration request")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondError(w, http.StatusNotFound, "registration request not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	users := []domain.User{}
	if err := h.db.Select(&users, `SELECT * FROM users ORDER BY created_at`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list users")
		return
	}
	for i := range users {
		users[i].Password = ""
	}
	respondJSON(w, http.StatusOK, users)
}

type userStatusPayload struct {
	Email  string `json:"email" validate:"required,email"`
	Status string `json:"status" validate:"required,oneof=active paused"`
}

func (h *Handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req userStatusPayload
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "email and status (active or paused) are required")
		return
	}
	res, err := h.db.Exec(`UPDATE users SET status = ? WHERE email = ?`, req.Status, strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update user status")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to start deletion")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM bill_items WHERE bill_id IN (SELECT id FROM bills WHERE user_id = ?)`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete user bills")
		return
	}
	if _, err := tx.Exec(`DELETE FROM bills WHERE user_id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete user bills")
		return
	}
	if _, err := tx.Exec(`DELETE FROM medicines WHERE user_id = ?`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete user inventory")
		return
	}
	res, err := tx.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete user")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to complete deletion")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
