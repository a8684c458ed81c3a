// Package store provides persistence for user accounts.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const (
	userColumns = `id, name, email, password_hash, address, role, created_at`

	createUserQuery = `INSERT INTO users (name, email, password_hash, address, role)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + userColumns
	findUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	findUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
)

type User struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Address      string    `db:"address"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// UserStore is an interface for user storage operations.
type UserStore interface {
	// Create stores a new user. Returns ErrUserAlreadyExists if the email is taken.
	Create(ctx context.Context, u User) (*User, error)

	// FindByEmail returns ErrUserNotFound if no user has the email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns ErrUserNotFound if no user has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// PgStore implements UserStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of UserStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) Create(ctx context.Context, u User) (*User, error) {
	rows, _ := p.db.Query(ctx, createUserQuery, u.Name, u.Email, u.PasswordHash, u.Address, u.Role)
	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[User])
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &created, nil
}

func (p *PgStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return p.findOne(ctx, findUserByEmailQuery, email)
}

func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return p.findOne(ctx, findUserByIDQuery, id)
}

func (p *PgStore) findOne(ctx context.Context, query string, arg any) (*User, error) {
	rows, _ := p.db.Query(ctx, query, arg)
	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}
