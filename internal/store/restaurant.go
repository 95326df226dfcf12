package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dining/totable/internal/model"
)

// ErrInvalidCredentials is returned when email/password authentication fails.
var ErrInvalidCredentials = errors.New("invalid email or password")

type RestaurantStore struct {
	db *sql.DB
}

func NewRestaurantStore(db *sql.DB) *RestaurantStore {
	return &RestaurantStore{db: db}
}

func scanRestaurant(scanner interface{ Scan(...any) error }) (*model.Restaurant, error) {
	var r model.Restaurant
	err := scanner.Scan(&r.ID, &r.Email, &r.Name, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const restaurantCols = `id, email, name, created_at`

func (s *RestaurantStore) Create(email, name, password string) (*model.Restaurant, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO restaurants (id, email, name, password_hash) VALUES (?, ?, ?, ?)`,
		id, email, name, string(hash),
	)
	if err != nil {
		return nil, fmt.Errorf("insert restaurant: %w", err)
	}
	return s.GetByID(id)
}

func (s *RestaurantStore) GetByID(id string) (*model.Restaurant, error) {
	row := s.db.QueryRow(`SELECT `+restaurantCols+` FROM restaurants WHERE id = ?`, id)
	r, err := scanRestaurant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	return r, nil
}

// GetByEmail resolves a restaurant from its login email (exact match).
func (s *RestaurantStore) GetByEmail(email string) (*model.Restaurant, error) {
	row := s.db.QueryRow(`SELECT `+restaurantCols+` FROM restaurants WHERE email = ?`, email)
	r, err := scanRestaurant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get restaurant by email: %w", err)
	}
	return r, nil
}

// Authenticate verifies an email/password pair. It returns
// ErrInvalidCredentials for both unknown emails and wrong passwords.
func (s *RestaurantStore) Authenticate(email, password string) (*model.Restaurant, error) {
	var r model.Restaurant
	var hash string
	row := s.db.QueryRow(`SELECT id, email, name, created_at, password_hash FROM restaurants WHERE email = ?`, email)
	err := row.Scan(&r.ID, &r.Email, &r.Name, &r.CreatedAt, &hash)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &r, nil
}
