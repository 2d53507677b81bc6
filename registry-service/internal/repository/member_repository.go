package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/account-registry/registry-service/internal/registry"
	"github.com/eaglebank/account-registry/shared/models"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// MemberStore is the store of record for registry membership. Accounts passed
// in are already in checksum form.
type MemberStore interface {
	Insert(ctx context.Context, member *models.Member) error
	Delete(ctx context.Context, account, removedBy string) error
	Size(ctx context.Context) (int, error)
	Get(ctx context.Context, account string) (*models.Member, error)
	List(ctx context.Context, offset, limit int) ([]models.Member, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS registry_members (
	id         BIGSERIAL PRIMARY KEY,
	account    VARCHAR(42) NOT NULL,
	added_by   VARCHAR(42) NOT NULL,
	added_at   TIMESTAMPTZ NOT NULL,
	removed_by VARCHAR(42),
	removed_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS registry_members_present_account
	ON registry_members (account) WHERE removed_at IS NULL;
`

// MemberWriteRepository keeps membership in PostgreSQL. Removal is a soft
// delete so the table doubles as a history of every add/remove pair.
type MemberWriteRepository struct {
	db *sql.DB
}

func NewMemberWriteRepository(db *sql.DB) *MemberWriteRepository {
	return &MemberWriteRepository{db: db}
}

func (r *MemberWriteRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *MemberWriteRepository) Insert(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO registry_members (account, added_by, added_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.db.ExecContext(ctx, query, member.Account, member.AddedBy, member.AddedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return registry.ErrAlreadyMember
	}
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *MemberWriteRepository) Delete(ctx context.Context, account, removedBy string) error {
	query := `
		UPDATE registry_members
		SET removed_at = NOW(), removed_by = $2
		WHERE account = $1 AND removed_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, account, removedBy)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return registry.ErrNotMember
	}
	return nil
}

func (r *MemberWriteRepository) Size(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM registry_members WHERE removed_at IS NULL`
	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

func (r *MemberWriteRepository) Get(ctx context.Context, account string) (*models.Member, error) {
	query := `
		SELECT account, added_by, added_at
		FROM registry_members
		WHERE account = $1 AND removed_at IS NULL
	`
	var m models.Member
	err := r.db.QueryRowContext(ctx, query, account).Scan(&m.Account, &m.AddedBy, &m.AddedAt)
	if err == sql.ErrNoRows {
		return nil, registry.ErrNotMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// List pages through present members ordered by insertion time. A
// non-positive limit means no limit.
func (r *MemberWriteRepository) List(ctx context.Context, offset, limit int) ([]models.Member, error) {
	query := `
		SELECT account, added_by, added_at
		FROM registry_members
		WHERE removed_at IS NULL
		ORDER BY added_at, account
		OFFSET $1 LIMIT $2
	`
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, query, offset, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.Account, &m.AddedBy, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
