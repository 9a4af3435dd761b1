package deletion

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

const requestColumns = `id, kind, target, status, requested_by, COALESCE(decided_by, 0), note, created_at, decided_at`

// Repository persists deletion requests in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new request. A concurrent pending request for the same
// target surfaces as ErrConflict.
func (r *Repository) Insert(ctx context.Context, req Request) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO deletion_requests (id, kind, target, target_key, status, requested_by, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, string(req.Kind), req.Target, targetKey(req.Kind, req.Target), string(req.Status), req.RequestedBy, req.Note, req.CreatedAt)
	if shared.IsUniqueViolation(err) {
		return errors.Join(shared.ErrConflict, err)
	}
	return shared.Unavailable(err)
}

// Get loads a request by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM deletion_requests WHERE id = $1`, id))
}

// FindPending returns the open request for a target.
func (r *Repository) FindPending(ctx context.Context, kind Kind, key string) (Request, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM deletion_requests
WHERE kind = $1 AND target_key = $2 AND status = $3`, string(kind), targetKey(kind, key), string(StatusPending)))
}

// ListPending returns open requests, oldest first.
func (r *Repository) ListPending(ctx context.Context) ([]Request, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM deletion_requests WHERE status = $1 ORDER BY created_at ASC`, string(StatusPending))
	if err != nil {
		return nil, shared.Unavailable(err)
	}
	defer rows.Close()
	out := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, shared.Unavailable(rows.Err())
}

// Decide closes a pending request. Already decided requests yield
// ErrRequestClosed.
func (r *Repository) Decide(ctx context.Context, id uuid.UUID, status Status, actorID int64, note string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE deletion_requests SET status = $2, decided_by = $3, note = $4, decided_at = $5
WHERE id = $1 AND status = $6`, id, string(status), actorID, note, at, string(StatusPending))
	if err != nil {
		return shared.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return shared.ErrRequestClosed
	}
	return nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	var kind, status string
	err := row.Scan(&req.ID, &kind, &req.Target, &status, &req.RequestedBy, &req.DecidedBy, &req.Note, &req.CreatedAt, &req.DecidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, shared.ErrNotFound
	}
	if err != nil {
		return Request{}, shared.Unavailable(err)
	}
	req.Kind = Kind(kind)
	req.Status = Status(status)
	return req, nil
}

func targetKey(kind Kind, key string) string {
	if kind == KindLocation {
		return ledger.NormalizeLocation(key)
	}
	return ledger.NormalizeSKU(key)
}
