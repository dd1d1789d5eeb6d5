package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/f3nation/f3map/modules/org/domain/events"
	"github.com/f3nation/f3map/modules/org/services"
	"github.com/f3nation/f3map/pkg/application"
	"github.com/f3nation/f3map/pkg/composables"
)

// AuditEventsHandler writes one structured audit line per request lifecycle
// event and drops cached ancestor chains when the org tree changes.
type AuditEventsHandler struct {
	tree *services.OrgTree
}

func RegisterAuditEventHandlers(app application.Application) *AuditEventsHandler {
	handler := &AuditEventsHandler{
		tree: app.Service(services.OrgTree{}).(*services.OrgTree),
	}
	bus := app.EventPublisher()
	bus.Subscribe(handler.onRequestSubmitted)
	bus.Subscribe(handler.onRequestResolved)
	bus.Subscribe(handler.onOrgTreeChanged)
	return handler
}

func (h *AuditEventsHandler) onRequestSubmitted(ctx context.Context, ev *events.RequestSubmittedV1) {
	if ev == nil {
		return
	}
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"audit":             true,
		"event_id":          ev.EventID.String(),
		"update_request_id": ev.UpdateID.String(),
		"request_type":      ev.RequestType,
		"target_org_id":     ev.TargetOrgID,
		"submitted_by":      ev.SubmittedBy,
		"status":            ev.Status,
	}).Info("audit.update_request.submitted")
}

func (h *AuditEventsHandler) onRequestResolved(ctx context.Context, ev *events.RequestResolvedV1) {
	if ev == nil {
		return
	}
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"audit":             true,
		"event_id":          ev.EventID.String(),
		"update_request_id": ev.UpdateID.String(),
		"request_type":      ev.RequestType,
		"target_org_id":     ev.TargetOrgID,
		"reviewed_by":       ev.ReviewedBy,
		"status":            ev.Status,
	}).Info("audit.update_request.resolved")
}

func (h *AuditEventsHandler) onOrgTreeChanged(ctx context.Context, ev *events.OrgTreeChangedV1) {
	if h == nil || h.tree == nil || ev == nil {
		return
	}
	h.tree.Invalidate(ctx, "org_tree_changed")
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"audit":             true,
		"event_id":          ev.EventID.String(),
		"update_request_id": ev.UpdateID.String(),
		"change_type":       ev.ChangeType,
		"org_id":            ev.OrgID,
	}).Info("audit.org_tree.changed")
}
