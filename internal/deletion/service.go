// Package deletion implements the two-step deletion flow: regular users file
// requests, admins approve or reject them, or delete immediately.
package deletion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

const approvalModule = "deletion"

// RepositoryPort persists deletion requests.
type RepositoryPort interface {
	Insert(ctx context.Context, req Request) error
	Get(ctx context.Context, id uuid.UUID) (Request, error)
	FindPending(ctx context.Context, kind Kind, key string) (Request, error)
	ListPending(ctx context.Context) ([]Request, error)
	Decide(ctx context.Context, id uuid.UUID, status Status, actorID int64, note string, at time.Time) error
}

// ProductPort is the catalogue side of a deletion.
type ProductPort interface {
	Exists(ctx context.Context, sku string) (bool, error)
	InUse(ctx context.Context, sku string) (bool, error)
	Delete(ctx context.Context, sku string, actorID int64) error
}

// LocationPort is the registry side of a deletion.
type LocationPort interface {
	EnsureRemovable(ctx context.Context, name string) (ledger.MasterLocation, error)
	Remove(ctx context.Context, name string, actorID int64) error
}

// ApprovalPort records request transitions.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates deletion requests.
type Service struct {
	repo      RepositoryPort
	products  ProductPort
	locations LocationPort
	approvals ApprovalPort
	audit     AuditPort
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, products ProductPort, locations LocationPort, approvals ApprovalPort, audit AuditPort) *Service {
	return &Service{repo: repo, products: products, locations: locations, approvals: approvals, audit: audit, now: time.Now}
}

// Request files a deletion request after running the same safety checks an
// immediate deletion would. A second request for the same target returns
// the pending one.
func (s *Service) Request(ctx context.Context, target Target, requestedBy int64) (Request, error) {
	target, err := s.check(ctx, target)
	if err != nil {
		return Request{}, err
	}
	existing, err := s.repo.FindPending(ctx, target.Kind, target.Key)
	if err == nil {
		return existing, nil
	}
	if !shared.IsNotFound(err) {
		return Request{}, err
	}
	req := Request{
		ID:          uuid.New(),
		Kind:        target.Kind,
		Target:      target.Key,
		Status:      StatusPending,
		RequestedBy: requestedBy,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, req); err != nil {
		return Request{}, err
	}
	s.trail(ctx, req, requestedBy, shared.ApprovalSubmit, shared.AuditDeletionRequested, "")
	return req, nil
}

// Approve executes the requested deletion and closes the request.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor shared.Actor) (Request, error) {
	if !actor.IsAdmin() {
		return Request{}, shared.ErrForbidden
	}
	req, err := s.pending(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if err := s.execute(ctx, Target{Kind: req.Kind, Key: req.Target}, actor.ID); err != nil {
		return Request{}, err
	}
	return s.decide(ctx, req, StatusApproved, actor.ID, "")
}

// Reject closes the request without deleting anything.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor shared.Actor, note string) (Request, error) {
	if !actor.IsAdmin() {
		return Request{}, shared.ErrForbidden
	}
	req, err := s.pending(ctx, id)
	if err != nil {
		return Request{}, err
	}
	return s.decide(ctx, req, StatusRejected, actor.ID, strings.TrimSpace(note))
}

// DeleteNow is the privileged immediate path, subject to the same checks.
func (s *Service) DeleteNow(ctx context.Context, target Target, actor shared.Actor) error {
	if !actor.IsAdmin() {
		return shared.ErrForbidden
	}
	target, err := s.check(ctx, target)
	if err != nil {
		return err
	}
	return s.execute(ctx, target, actor.ID)
}

// RemoveProduct deletes a product immediately.
func (s *Service) RemoveProduct(ctx context.Context, sku string, actor shared.Actor) error {
	return s.DeleteNow(ctx, Target{Kind: KindProduct, Key: sku}, actor)
}

// RemoveLocation deletes a master location immediately.
func (s *Service) RemoveLocation(ctx context.Context, name string, actor shared.Actor) error {
	return s.DeleteNow(ctx, Target{Kind: KindLocation, Key: name}, actor)
}

// ListPending returns requests awaiting a decision, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]Request, error) {
	return s.repo.ListPending(ctx)
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	return s.repo.Get(ctx, id)
}

// check validates target and runs the pre-deletion safety checks.
func (s *Service) check(ctx context.Context, target Target) (Target, error) {
	target.Key = strings.TrimSpace(target.Key)
	if target.Key == "" {
		return target, shared.Validation("deletion target required")
	}
	switch target.Kind {
	case KindProduct:
		ok, err := s.products.Exists(ctx, target.Key)
		if err != nil {
			return target, err
		}
		if !ok {
			return target, fmt.Errorf("%w: product %q", shared.ErrNotFound, target.Key)
		}
		inUse, err := s.products.InUse(ctx, target.Key)
		if err != nil {
			return target, err
		}
		if inUse {
			return target, fmt.Errorf("%w: product %q", shared.ErrProductInUse, target.Key)
		}
	case KindLocation:
		loc, err := s.locations.EnsureRemovable(ctx, target.Key)
		if err != nil {
			return target, err
		}
		target.Key = loc.Name
	default:
		return target, shared.Validation("unknown deletion kind %q", target.Kind)
	}
	return target, nil
}

func (s *Service) execute(ctx context.Context, target Target, actorID int64) error {
	switch target.Kind {
	case KindProduct:
		return s.products.Delete(ctx, target.Key, actorID)
	case KindLocation:
		return s.locations.Remove(ctx, target.Key, actorID)
	}
	return shared.Validation("unknown deletion kind %q", target.Kind)
}

func (s *Service) pending(ctx context.Context, id uuid.UUID) (Request, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, shared.ErrRequestClosed
	}
	return req, nil
}

func (s *Service) decide(ctx context.Context, req Request, status Status, actorID int64, note string) (Request, error) {
	at := s.now().UTC()
	if err := s.repo.Decide(ctx, req.ID, status, actorID, note, at); err != nil {
		return Request{}, err
	}
	req.Status = status
	req.DecidedBy = actorID
	req.DecidedAt = &at
	req.Note = note
	action, audit := shared.ApprovalApprove, shared.AuditDeletionApproved
	if status == StatusRejected {
		action, audit = shared.ApprovalReject, shared.AuditDeletionRejected
	}
	s.trail(ctx, req, actorID, action, audit, note)
	return req, nil
}

func (s *Service) trail(ctx context.Context, req Request, actorID int64, action shared.ApprovalAction, auditAction, note string) {
	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  approvalModule,
			RefID:   req.ID,
			ActorID: actorID,
			Action:  action,
			Note:    note,
		})
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   auditAction,
			Entity:   "deletion_request",
			EntityID: req.ID.String(),
			Meta:     map[string]any{"kind": string(req.Kind), "target": req.Target},
		})
	}
}
