package authz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/sirupsen/logrus"
)

// Service evaluates the role policy that decides which role level may commit
// each request kind.
type Service struct {
	cfg      Config
	enforcer *casbin.Enforcer
	logger   *logrus.Entry
	mu       sync.RWMutex
}

// NewService constructs a Service with the provided config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	var logger *logrus.Entry
	if cfg.Logger != nil {
		logger = cfg.Logger.WithField("component", "authz")
	} else {
		logger = logrus.WithField("component", "authz")
	}

	m, err := loadModel(cfg)
	if err != nil {
		return nil, err
	}
	var adapter any = stringadapter.NewAdapter(defaultPolicy)
	if cfg.PolicyPath != "" {
		adapter = fileadapter.NewAdapter(cfg.PolicyPath)
	}

	enf, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}
	if err := enf.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("authz: failed to load policies: %w", err)
	}

	return &Service{
		cfg:      cfg,
		enforcer: enf,
		logger:   logger,
	}, nil
}

func loadModel(cfg Config) (model.Model, error) {
	if cfg.ModelPath == "" {
		m, err := model.NewModelFromString(defaultModel)
		if err != nil {
			return nil, fmt.Errorf("authz: failed to parse embedded model: %w", err)
		}
		return m, nil
	}
	m, err := model.NewModelFromFile(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to load model %s: %w", cfg.ModelPath, err)
	}
	return m, nil
}

// Check evaluates a request.
func (s *Service) Check(ctx context.Context, req Request) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	res, err := s.enforcer.Enforce(req.Subject, req.Object, req.Action)
	if err != nil {
		return false, fmt.Errorf("authz: enforce failed: %w", err)
	}
	recordCheck(req.Object, res, time.Since(start))
	return res, nil
}

// MinimumRole returns the first of roles, ordered from least to most
// privileged, that may perform action on object. ok is false when none may.
func (s *Service) MinimumRole(ctx context.Context, object, action string, roles []string) (string, bool, error) {
	for _, role := range roles {
		allowed, err := s.Check(ctx, NewRequest(SubjectForRole(role), object, action))
		if err != nil {
			return "", false, err
		}
		if allowed {
			return role, true, nil
		}
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"object": object,
		"action": action,
	}).Warn("authz: no role may perform action")
	return "", false, nil
}

// ReloadPolicy reloads policy data from its source.
func (s *Service) ReloadPolicy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload policy failed: %w", err)
	}
	s.logger.WithContext(ctx).Info("authz policy reloaded")
	return nil
}
