package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/model"
	"github.com/iliyamo/exam-seating/internal/utils"
)

// UserRepo persists staff accounts.
type UserRepo struct {
	db *sql.DB
	d  database.Dialect
}

func NewUserRepo(db *sql.DB, d database.Dialect) *UserRepo { return &UserRepo{db: db, d: d} }

// Create hashes the password and inserts the user, returning its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id, err := insertReturningID(ctx, r.db, r.d,
		"INSERT INTO users (email, password_hash, role, is_active, created_at) VALUES (?, ?, ?, 1, ?)",
		email, hash, strings.ToUpper(role), time.Now().UTC().Format(dbTimeLayout))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return id, nil
}

// GetByEmail fetches a user by normalized email.  A miss returns
// sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.db.QueryRowContext(ctx, r.d.Rebind(
		"SELECT id, email, password_hash, role, is_active, created_at FROM users WHERE email = ?"), email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, r.d.Rebind(
		"SELECT id, email, password_hash, role, is_active, created_at FROM users WHERE id = ?"), id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u      model.User
		active int
		at     sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &active, &at); err != nil {
		return model.User{}, err
	}
	u.IsActive = active != 0
	u.CreatedAt = parseDBTime(at)
	return u, nil
}
