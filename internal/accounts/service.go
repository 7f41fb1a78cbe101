package accounts

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindwell/internal/models"
)

// Service handles party registration, login, and lookup.
type Service struct {
	db *sql.DB
}

// NewService builds an accounts service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// RegisterUser creates a party with the supplied credentials and role. Only
// client and therapist accounts can be self-registered.
func (s *Service) RegisterUser(ctx context.Context, name, email, password string, role models.Role) (*models.Party, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email, and password are required")
	}
	if role == "" {
		role = models.RoleClient
	}
	if !role.Valid() || role == models.RoleAdmin {
		return nil, errors.New("role must be client or therapist")
	}

	hash := hashPassword(password)
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, email, hash, role, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return &models.Party{ID: id, Name: name, Email: email, PasswordHash: hash, Role: role, CreatedAt: now}, nil
}

// Login validates credentials and returns the party profile.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Party, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ?`, email,
	)
	var p models.Party
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.Role, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("invalid credentials")
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if p.PasswordHash != hashPassword(password) {
		return nil, errors.New("invalid credentials")
	}
	return &p, nil
}

// ListTherapists returns all therapist parties, newest first.
func (s *Service) ListTherapists(ctx context.Context) ([]models.Party, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE role = ? ORDER BY created_at DESC`,
		models.RoleTherapist,
	)
	if err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}
	defer rows.Close()

	var therapists []models.Party
	for rows.Next() {
		var p models.Party
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan therapist: %w", err)
		}
		therapists = append(therapists, p)
	}
	return therapists, rows.Err()
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
