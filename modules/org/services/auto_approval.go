package services

import (
	"strings"

	"github.com/f3nation/f3map/modules/org/domain/role"
)

const (
	AutoApproveDisabled   = "disabled"
	AutoApproveAuthorized = "authorized"
)

// AutoApprovalPolicy decides whether a submitter's auto-approve hint skips
// review. The hint is honoured only for actors who could have approved the
// request themselves, and never for org lifecycle kinds.
type AutoApprovalPolicy struct {
	mode string
}

func NewAutoApprovalPolicy(mode string) *AutoApprovalPolicy {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != AutoApproveDisabled {
		mode = AutoApproveAuthorized
	}
	return &AutoApprovalPolicy{mode: mode}
}

func (p *AutoApprovalPolicy) Mode() string { return p.mode }

func (p *AutoApprovalPolicy) ShouldAutoApprove(req ValidatedRequest, actorLevel, required role.Level) bool {
	if p.mode != AutoApproveAuthorized || !req.AutoApprove {
		return false
	}
	if req.Kind.IsOrgLifecycle() {
		return false
	}
	return required > role.LevelNone && actorLevel >= required
}
