package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit actions written by the ledger modules.
const (
	AuditProductCreate     = "product:create"
	AuditProductUpdate     = "product:update"
	AuditProductClone      = "product:clone"
	AuditProductDelete     = "product:delete"
	AuditStockAdd          = "ledger:add"
	AuditStockMove         = "ledger:move"
	AuditStockExit         = "ledger:exit"
	AuditExitObservation   = "exit:observation"
	AuditExitDelete        = "exit:delete"
	AuditLocationRegister  = "master_location:register"
	AuditLocationRemove    = "master_location:remove"
	AuditDeletionRequested = "deletion:request"
	AuditDeletionApproved  = "deletion:approve"
	AuditDeletionRejected  = "deletion:reject"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at any
	if !log.At.IsZero() {
		at = log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return Unavailable(err)
}
