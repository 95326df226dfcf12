package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dining/totable/internal/model"
)

type RoleStore struct {
	db *sql.DB
}

func NewRoleStore(db *sql.DB) *RoleStore {
	return &RoleStore{db: db}
}

func scanRole(scanner interface{ Scan(...any) error }) (*model.Role, error) {
	var r model.Role
	err := scanner.Scan(&r.ID, &r.RestaurantID, &r.Name, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const roleCols = `id, restaurant_id, name, created_at`

func (s *RoleStore) Create(restaurantID, name string) (*model.Role, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO roles (id, restaurant_id, name) VALUES (?, ?, ?)`,
		id, restaurantID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("insert role: %w", err)
	}
	return s.GetByID(id)
}

func (s *RoleStore) GetByID(id string) (*model.Role, error) {
	row := s.db.QueryRow(`SELECT `+roleCols+` FROM roles WHERE id = ?`, id)
	r, err := scanRole(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	return r, nil
}

func (s *RoleStore) ListByRestaurant(restaurantID string) ([]model.Role, error) {
	rows, err := s.db.Query(
		`SELECT `+roleCols+` FROM roles WHERE restaurant_id = ? ORDER BY name ASC`,
		restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, *r)
	}
	return roles, rows.Err()
}

func (s *RoleStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM roles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}
