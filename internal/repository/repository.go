// Package repository implements all database queries for the book-fair
// backend. It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bookfairhq/bookfair-backend/internal/model"
	"github.com/bookfairhq/bookfair-backend/internal/reference"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// pgUniqueViolation is the PostgreSQL error code for a duplicate key.
const pgUniqueViolation = "23505"

// SubmissionRepository handles persistence for submissions of every kind.
//
// Status updates are deliberately last-write-wins: the one concurrent
// actor pair (applicant's browser vs. administrator) only touches
// disjoint columns in practice, and the workflow controller rejects
// backward status transitions before they reach this layer.
type SubmissionRepository struct {
	db *pgxpool.Pool
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `reference, kind, payload, status, admin_confirmed, pay_by, checked_in_at, created_at, updated_at`

// Create inserts a new submission with a freshly generated reference and
// the initial pending status. On the (negligible-probability) reference
// collision it regenerates and retries.
func (r *SubmissionRepository) Create(ctx context.Context, kind model.Kind, payload model.Payload) (*model.Submission, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	for attempt := 0; attempt < 3; attempt++ {
		now := time.Now().UTC()
		sub := &model.Submission{
			Reference: reference.New(kind),
			Kind:      kind,
			Payload:   payload,
			Status:    model.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		_, err = r.db.Exec(ctx,
			`INSERT INTO submissions (reference, kind, payload, status, admin_confirmed, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, FALSE, $5, $6)`,
			sub.Reference, sub.Kind, body, sub.Status, sub.CreatedAt, sub.UpdatedAt,
		)
		if err == nil {
			return sub, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			continue
		}
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return nil, fmt.Errorf("insert submission: reference collisions exhausted retries: %w", err)
}

// GetByReference returns a single submission or ErrNotFound.
func (r *SubmissionRepository) GetByReference(ctx context.Context, ref string) (*model.Submission, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE reference = $1`, ref)
	return scanSubmission(row)
}

// UpdateStatus overwrites the status and bumps updated_at. The caller is
// responsible for transition ordering; an unknown reference is ErrNotFound.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, ref string, status model.Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE submissions SET status = $2, updated_at = $3 WHERE reference = $1`,
		ref, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAdminConfirmed flips admin_confirmed to true. Re-confirming an
// already-confirmed submission is a no-op, not an error.
func (r *SubmissionRepository) SetAdminConfirmed(ctx context.Context, ref string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE submissions SET admin_confirmed = TRUE, updated_at = $2 WHERE reference = $1`,
		ref, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set admin confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPayBy records the soft pay-later deadline. Administrative tooling
// reads it; the workflow never enforces it.
func (r *SubmissionRepository) SetPayBy(ctx context.Context, ref string, payBy time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE submissions SET pay_by = $2, updated_at = $3 WHERE reference = $1`,
		ref, payBy.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set pay_by: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateFields merges a partial payload into the stored one. Used for
// post-hoc edits such as badge info corrections before printing.
func (r *SubmissionRepository) UpdateFields(ctx context.Context, ref string, partial model.Payload) (*model.Submission, error) {
	body, err := json.Marshal(partial)
	if err != nil {
		return nil, fmt.Errorf("marshal partial payload: %w", err)
	}

	row := r.db.QueryRow(ctx,
		`UPDATE submissions
		 SET payload = payload || $2::jsonb, updated_at = $3
		 WHERE reference = $1
		 RETURNING `+submissionColumns,
		ref, body, time.Now().UTC(),
	)
	return scanSubmission(row)
}

// MarkCheckedIn records the first badge scan for a submission inside a
// row lock, so two gate operators scanning the same badge see exactly
// one winning scan. Returns true when this call performed the check-in,
// false when the badge was already checked in.
func (r *SubmissionRepository) MarkCheckedIn(ctx context.Context, ref string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var checkedInAt *time.Time
	err = tx.QueryRow(ctx,
		`SELECT checked_in_at FROM submissions WHERE reference = $1 FOR UPDATE`, ref,
	).Scan(&checkedInAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("lock submission row: %w", err)
	}
	if checkedInAt != nil {
		_ = tx.Rollback(ctx)
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE submissions SET checked_in_at = $2, updated_at = $2 WHERE reference = $1`,
		ref, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("mark checked in: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

// ListByKind returns all submissions of one kind, newest first.
func (r *SubmissionRepository) ListByKind(ctx context.Context, kind model.Kind) ([]model.Submission, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE kind = $1 ORDER BY created_at DESC`,
		kind,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	var (
		sub  model.Submission
		body []byte
	)
	err := row.Scan(
		&sub.Reference, &sub.Kind, &body, &sub.Status, &sub.AdminConfirmed,
		&sub.PayBy, &sub.CheckedInAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	if err := json.Unmarshal(body, &sub.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &sub, nil
}

// CatalogRepository handles persistence for donatable catalog items.
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListActive returns all active catalog items ordered by title.
func (r *CatalogRepository) ListActive(ctx context.Context) ([]model.CatalogItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, unit_price, active, created_at
		 FROM catalog_items WHERE active ORDER BY title ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	var items []model.CatalogItem
	for rows.Next() {
		var it model.CatalogItem
		if err := rows.Scan(&it.ID, &it.Title, &it.UnitPrice, &it.Active, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// PricesFor resolves unit prices for the given item IDs. Missing or
// inactive items are reported as ErrNotFound so stale carts cannot be
// priced against a catalog that no longer carries them.
func (r *CatalogRepository) PricesFor(ctx context.Context, ids []string) (map[string]int64, error) {
	if len(ids) == 0 {
		return map[string]int64{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, unit_price FROM catalog_items WHERE active AND id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("price catalog items: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]int64, len(ids))
	for rows.Next() {
		var (
			id    string
			price int64
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			return nil, fmt.Errorf("catalog item %s: %w", id, ErrNotFound)
		}
	}
	return prices, nil
}
