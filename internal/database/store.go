package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/omega-realm/scruffy/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
)

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the durable record of users and monsters.
//
// Every method borrows a pooled connection for the duration of a single
// statement. UpdateHealth deliberately issues two independent statements.
type Store struct {
	db      DBTX
	dialect Dialect
}

func NewStore(db DBTX, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) q(query string) string {
	return rebind(s.dialect, query)
}

// CreateUser inserts a user row and returns it with its assigned id.
// A taken username yields ErrDuplicateUsername and writes nothing.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
		INSERT INTO users (username, password, health, strength, hits)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, s.q(query),
		user.Username, user.Password, user.Health, user.Strength, user.Hits,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicateUsername
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	query := `
		SELECT id, username, password, health, strength, hits
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, s.q(query), username))
}

func (s *Store) FindUserByID(ctx context.Context, id int) (models.User, error) {
	query := `
		SELECT id, username, password, health, strength, hits
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, s.q(query), id))
}

func (s *Store) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Health, &u.Strength, &u.Hits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// CountUsersByUsername returns how many rows carry the given username.
func (s *Store) CountUsersByUsername(ctx context.Context, username string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM users WHERE username = ?`), username).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// CreateMonsterForUser gives the user a monster built from the template,
// unless the user already owns one. The stored monster is returned along with
// whether this call created it.
func (s *Store) CreateMonsterForUser(ctx context.Context, userID int, template models.Monster) (models.Monster, bool, error) {
	query := `
		INSERT INTO monsters (monstername, health, strength, hits, owner_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, s.q(query),
		template.Name, template.Health, template.Strength, template.Hits, userID,
	)
	if err != nil {
		return models.Monster{}, false, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Monster{}, false, fmt.Errorf("db error: %w", err)
	}

	m, err := s.FindMonsterByOwner(ctx, userID)
	if err != nil {
		return models.Monster{}, false, err
	}
	return m, affected > 0, nil
}

func (s *Store) FindMonsterByOwner(ctx context.Context, userID int) (models.Monster, error) {
	query := `
		SELECT id, monstername, health, strength, hits, owner_id
		FROM monsters
		WHERE owner_id = ?
		ORDER BY id
		LIMIT 1
	`
	var m models.Monster
	err := s.db.QueryRowContext(ctx, s.q(query), userID).Scan(
		&m.ID, &m.Name, &m.Health, &m.Strength, &m.Hits, &m.OwnerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Monster{}, ErrNotFound
		}
		return models.Monster{}, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// UpdateHealth persists both healths for a user and its monster. The two rows
// are written by separate statements outside any transaction, so a failure on
// the second leaves the monster updated and the user stale.
func (s *Store) UpdateHealth(ctx context.Context, userID, monsterHealth, userHealth int) error {
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE monsters SET health = ? WHERE owner_id = ?`), monsterHealth, userID); err != nil {
		return fmt.Errorf("update monster health: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET health = ? WHERE id = ?`), userHealth, userID); err != nil {
		return fmt.Errorf("update user health: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
