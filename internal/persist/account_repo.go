package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/a3zone/server/internal/world"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AccountRow is one login account. Name is the folded lookup key;
// DisplayName keeps the spelling the account was created with.
type AccountRow struct {
	Name         string
	DisplayName  string
	PasswordHash string
	Banned       bool
	CreatedAt    time.Time
	LastLogin    *time.Time
	LastIP       string
}

// ValidatePassword reports whether raw matches the stored bcrypt hash.
func (a *AccountRow) ValidatePassword(raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(raw)) == nil
}

func hashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// accountKey folds account names the same way character names are folded.
func accountKey(name string) string {
	return world.NameKey(name)
}

type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Load returns the account, or ErrNotFound.
func (r *AccountRepo) Load(ctx context.Context, name string) (*AccountRow, error) {
	row := &AccountRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT name, display_name, password_hash, banned, created_at, last_login, COALESCE(last_ip,'')
		 FROM accounts WHERE name = $1`, accountKey(name),
	).Scan(&row.Name, &row.DisplayName, &row.PasswordHash, &row.Banned, &row.CreatedAt, &row.LastLogin, &row.LastIP)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) Create(ctx context.Context, name, rawPassword, ip string) (*AccountRow, error) {
	hash, err := hashPassword(rawPassword)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	row := &AccountRow{
		Name:         accountKey(name),
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    now,
		LastLogin:    &now,
		LastIP:       ip,
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO accounts (name, display_name, password_hash, last_login, last_ip)
		 VALUES ($1, $2, $3, $4, $5)`,
		row.Name, row.DisplayName, row.PasswordHash, row.LastLogin, row.LastIP,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *AccountRepo) RecordLogin(ctx context.Context, name, ip string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE accounts SET last_login = NOW(), last_ip = $2 WHERE name = $1`,
		accountKey(name), ip,
	)
	return err
}
