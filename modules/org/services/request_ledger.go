package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/f3nation/f3map/modules/org/domain/events"
	"github.com/f3nation/f3map/modules/org/domain/role"
	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
	"github.com/f3nation/f3map/pkg/composables"
	"github.com/f3nation/f3map/pkg/eventbus"
)

// TxRunner runs fn in a transaction carried by the context passed to fn.
// Nested calls join the outer transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type LedgerOptions struct {
	// DirectCommit applies requests from sufficiently authorized submitters
	// immediately. When false they are queued unless auto-approved.
	DirectCommit    bool
	DefaultPageSize int
	MaxPageSize     int
	// RetryDelay is the pause before the single automatic commit retry.
	RetryDelay time.Duration
	Now        func() time.Time
}

type LedgerDeps struct {
	Tx        TxRunner
	Requests  updaterequest.Repository
	Tree      *OrgTree
	Roles     *RoleStore
	Resolver  *AuthorityResolver
	Validator *RequestValidator
	Policy    *AutoApprovalPolicy
	Engine    *CommitEngine
	Publisher eventbus.EventBus
}

var tracer = otel.Tracer("f3map/org")

// RequestLedger owns the update request lifecycle.
type RequestLedger struct {
	LedgerDeps
	opts LedgerOptions
}

func NewRequestLedger(deps LedgerDeps, opts LedgerOptions) *RequestLedger {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 50
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Policy == nil {
		deps.Policy = NewAutoApprovalPolicy(AutoApproveDisabled)
	}
	return &RequestLedger{LedgerDeps: deps, opts: opts}
}

// Submit validates raw as a request of kind and either commits it at once or
// queues it for review.
func (l *RequestLedger) Submit(ctx context.Context, kind updaterequest.Kind, raw []byte, actorID int64) (*updaterequest.UpdateRequest, error) {
	fields := logrus.Fields{"request_type": string(kind), "actor_id": actorID}
	if requestID, ok := composables.UseRequestID(ctx); ok {
		fields["request_id"] = requestID
	}
	if actorID <= 0 {
		return nil, newForbidden("authentication required")
	}

	vr, err := l.Validator.Validate(kind, raw)
	if err != nil {
		recordSubmission(string(kind), "invalid")
		logRejected(ctx, "update_request.submit.rejected", fields, err)
		return nil, err
	}
	required, err := l.Resolver.RequiredLevel(ctx, kind)
	if err != nil {
		return nil, err
	}

	if kind.MutatesOrgTree() {
		l.Tree.Invalidate(ctx, "submit")
		defer l.Tree.Invalidate(ctx, "submit")
	}

	var (
		stored  *updaterequest.UpdateRequest
		applied bool
	)
	err = l.commit(ctx, "submit", func(txCtx context.Context) error {
		targets, err := l.Engine.ResolveTargets(txCtx, vr)
		if err != nil {
			return err
		}
		level, err := l.Resolver.ResolveAll(txCtx, actorID, targets.AuthorityOrgIDs)
		if err != nil {
			return err
		}

		req, err := l.newRequest(vr, targets, actorID)
		if err != nil {
			return err
		}
		commitNow := level >= required && (l.opts.DirectCommit || l.Policy.ShouldAutoApprove(vr, level, required))
		switch {
		case commitNow:
			res, err := l.Engine.Apply(txCtx, vr, targets)
			if err != nil {
				return err
			}
			req.Status = updaterequest.StatusApproved
			req.ReviewedBy = int64Ptr(actorID)
			attachResult(req, vr.Kind, res)
		case level >= role.LevelEditor && level < required:
			return newForbidden(fmt.Sprintf("%s requires %s authority", kind, required))
		}
		if err := l.Requests.Insert(txCtx, req); err != nil {
			return mapPgErrorToServiceError(err)
		}
		stored, applied = req, commitNow
		return nil
	})
	if err != nil {
		recordSubmission(string(kind), outcomeOf(err))
		logRejected(ctx, "update_request.submit.rejected", fields, err)
		return nil, err
	}

	recordSubmission(string(kind), string(stored.Status))
	fields["update_request_id"] = stored.ID.String()
	fields["status"] = string(stored.Status)
	logWithFields(ctx, logrus.InfoLevel, "update_request.submitted", fields)
	l.publish(ctx, &events.RequestSubmittedV1{
		EventID:      uuid.New(),
		EventVersion: events.EventVersionV1,
		RequestID:    requestIDOf(ctx),
		UpdateID:     stored.ID,
		RequestType:  string(stored.Kind),
		TargetOrgID:  stored.TargetOrgID,
		SubmittedBy:  actorID,
		Status:       string(stored.Status),
		OccurredAt:   stored.Created,
	})
	if applied {
		l.publishTreeChange(ctx, stored)
	}
	return stored, nil
}

// Approve commits a pending request on behalf of a reviewer.
func (l *RequestLedger) Approve(ctx context.Context, id uuid.UUID, actorID int64) (*updaterequest.UpdateRequest, error) {
	return l.resolve(ctx, id, actorID, updaterequest.StatusApproved)
}

// Reject closes a pending request without touching the entity store.
func (l *RequestLedger) Reject(ctx context.Context, id uuid.UUID, actorID int64) (*updaterequest.UpdateRequest, error) {
	return l.resolve(ctx, id, actorID, updaterequest.StatusRejected)
}

func (l *RequestLedger) resolve(ctx context.Context, id uuid.UUID, actorID int64, status updaterequest.Status) (*updaterequest.UpdateRequest, error) {
	operation := "approve"
	if status == updaterequest.StatusRejected {
		operation = "reject"
	}
	req, err := l.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := requestFields(ctx, req.ID, req.Kind, actorID)

	if err := l.authorizeReview(ctx, req, actorID); err != nil {
		recordResolution(string(req.Kind), outcomeOf(err))
		logRejected(ctx, "update_request."+operation+".rejected", fields, err)
		return nil, err
	}
	if req.Status != updaterequest.StatusPending {
		err := newAlreadyResolved(req.Status)
		recordResolution(string(req.Kind), outcomeOf(err))
		logRejected(ctx, "update_request."+operation+".rejected", fields, err)
		return nil, err
	}

	applies := status == updaterequest.StatusApproved
	if applies && req.Kind.MutatesOrgTree() {
		l.Tree.Invalidate(ctx, operation)
		defer l.Tree.Invalidate(ctx, operation)
	}

	now := l.opts.Now().UTC()
	var result CommitResult
	err = l.commit(ctx, operation, func(txCtx context.Context) error {
		ok, err := l.Requests.Resolve(txCtx, req.ID, status, actorID, now)
		if err != nil {
			return err
		}
		if !ok {
			current, err := l.getRequest(txCtx, req.ID)
			if err != nil {
				return err
			}
			return newAlreadyResolved(current.Status)
		}
		if !applies {
			return nil
		}
		vr, err := l.Validator.Validate(req.Kind, req.Payload)
		if err != nil {
			return err
		}
		targets, err := l.Engine.ResolveTargets(txCtx, vr)
		if err != nil {
			return err
		}
		result, err = l.Engine.Apply(txCtx, vr, targets)
		if err != nil {
			return err
		}
		var newOrgID, newLocationID *int64
		if createsOrg(req.Kind) {
			newOrgID = result.OrgID
		}
		if createsLocation(req.Kind) {
			newLocationID = result.LocationID
		}
		if newOrgID == nil && newLocationID == nil {
			return nil
		}
		return l.Requests.RecordResult(txCtx, req.ID, newOrgID, newLocationID)
	})
	if err != nil {
		recordResolution(string(req.Kind), outcomeOf(err))
		logRejected(ctx, "update_request."+operation+".rejected", fields, err)
		return nil, err
	}

	resolved, err := l.getRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	recordResolution(string(req.Kind), string(status))
	fields["status"] = string(status)
	logWithFields(ctx, logrus.InfoLevel, "update_request.resolved", fields)
	l.publish(ctx, &events.RequestResolvedV1{
		EventID:      uuid.New(),
		EventVersion: events.EventVersionV1,
		RequestID:    requestIDOf(ctx),
		UpdateID:     resolved.ID,
		RequestType:  string(resolved.Kind),
		TargetOrgID:  resolved.TargetOrgID,
		ReviewedBy:   actorID,
		Status:       string(resolved.Status),
		OccurredAt:   now,
	})
	if applies {
		l.publishTreeChange(ctx, resolved)
	}
	return resolved, nil
}

// authorizeReview requires the kind's commit level on the target org and, for
// moves, on the destination org. Inactive nodes count so a reviewer can still
// close requests against soft-deleted orgs.
func (l *RequestLedger) authorizeReview(ctx context.Context, req *updaterequest.UpdateRequest, actorID int64) error {
	if actorID <= 0 {
		return newForbidden("authentication required")
	}
	required, err := l.Resolver.RequiredLevel(ctx, req.Kind)
	if err != nil {
		return err
	}
	orgIDs := []int64{req.TargetOrgID}
	if req.NewOrgID != nil && *req.NewOrgID != req.TargetOrgID && !createsOrg(req.Kind) {
		orgIDs = append(orgIDs, *req.NewOrgID)
	}
	level, err := l.Resolver.ResolveAll(ctx, actorID, orgIDs, IncludeInactive())
	if err != nil {
		return err
	}
	if level < required {
		return newForbidden(fmt.Sprintf("reviewing %s requires %s authority", req.Kind, required))
	}
	return nil
}

// commit runs fn in a transaction, retrying once when the store fails for a
// reason other than a domain rule.
func (l *RequestLedger) commit(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "update_request."+operation)
	defer span.End()

	attempt := 0
	backoff := retry.WithMaxRetries(1, retry.NewConstant(l.opts.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			recordCommitRetry(operation)
		}
		err := l.Tx.InTx(ctx, fn)
		if err == nil || isDomainError(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	span.SetAttributes(attribute.Int("commit.attempts", attempt))
	if err == nil || isDomainError(err) {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "commit failed")
	logWithFields(ctx, logrus.ErrorLevel, "update_request.commit.failed", logrus.Fields{
		"operation":  operation,
		"attempts":   attempt,
		"request_id": requestIDOf(ctx),
		"error":      err.Error(),
	})
	return newCommitFailed(err)
}

func (l *RequestLedger) newRequest(vr ValidatedRequest, t *Targets, actorID int64) (*updaterequest.UpdateRequest, error) {
	payload, err := json.Marshal(vr.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := l.opts.Now().UTC()
	req := &updaterequest.UpdateRequest{
		ID:          uuid.New(),
		Kind:        vr.Kind,
		TargetOrgID: t.TargetOrgID,
		NewOrgID:    t.NewOrgID,
		Payload:     payload,
		SubmittedBy: actorID,
		Status:      updaterequest.StatusPending,
		Created:     now,
		Updated:     now,
	}
	if scoped, ok := vr.Payload.(updaterequest.RegionScoped); ok {
		req.RegionID = int64Ptr(scoped.RegionID())
	}
	if t.Location != nil {
		req.OriginalLocationID = int64Ptr(t.Location.ID)
	}
	if t.Event != nil {
		req.OriginalEventID = int64Ptr(t.Event.ID)
		if req.OriginalLocationID == nil {
			req.OriginalLocationID = int64Ptr(t.Event.LocationID)
		}
	}
	if t.NewLocation != nil {
		req.NewLocationID = int64Ptr(t.NewLocation.ID)
	}
	return req, nil
}

func (l *RequestLedger) getRequest(ctx context.Context, id uuid.UUID) (*updaterequest.UpdateRequest, error) {
	req, err := l.Requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, updaterequest.ErrNotFound) {
			return nil, newServiceError(http.StatusNotFound, CodeTargetNotFound, fmt.Sprintf("update request %s not found", id), err)
		}
		return nil, err
	}
	return req, nil
}

func (l *RequestLedger) publish(ctx context.Context, evt any) {
	if l.Publisher == nil {
		return
	}
	l.Publisher.Publish(ctx, evt)
}

func (l *RequestLedger) publishTreeChange(ctx context.Context, req *updaterequest.UpdateRequest) {
	if !req.Kind.MutatesOrgTree() {
		return
	}
	orgID := req.TargetOrgID
	if createsOrg(req.Kind) && req.NewOrgID != nil {
		orgID = *req.NewOrgID
	}
	l.publish(ctx, &events.OrgTreeChangedV1{
		EventID:      uuid.New(),
		EventVersion: events.EventVersionV1,
		RequestID:    requestIDOf(ctx),
		UpdateID:     req.ID,
		ChangeType:   string(req.Kind),
		OrgID:        orgID,
		OccurredAt:   l.opts.Now().UTC(),
	})
}

// attachResult records ids created by the commit on a request not yet stored.
func attachResult(req *updaterequest.UpdateRequest, kind updaterequest.Kind, res CommitResult) {
	if createsOrg(kind) && res.OrgID != nil {
		req.NewOrgID = res.OrgID
	}
	if createsLocation(kind) && res.LocationID != nil {
		req.NewLocationID = res.LocationID
	}
}

func createsOrg(kind updaterequest.Kind) bool {
	return kind == updaterequest.KindCreateAOAndLocationAndEvent || kind == updaterequest.KindCreateOrg
}

func createsLocation(kind updaterequest.Kind) bool {
	switch kind {
	case updaterequest.KindCreateAOAndLocationAndEvent,
		updaterequest.KindMoveAOToNewLocation,
		updaterequest.KindMoveEventToNewLocation:
		return true
	default:
		return false
	}
}

func outcomeOf(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Code {
		case CodeValidationFailed, CodeLegacyRequestType:
			return "invalid"
		case CodeForbidden:
			return "forbidden"
		case CodeTargetNotFound:
			return "not_found"
		case CodeAlreadyResolved:
			return "already_resolved"
		case CodeCommitFailed:
			return "commit_failed"
		default:
			return "conflict"
		}
	}
	return "error"
}

func requestIDOf(ctx context.Context) string {
	id, _ := composables.UseRequestID(ctx)
	return id
}
