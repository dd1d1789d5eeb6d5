package org

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/f3nation/f3map/modules/org/handlers"
	"github.com/f3nation/f3map/modules/org/infrastructure/persistence"
	"github.com/f3nation/f3map/modules/org/presentation/controllers"
	"github.com/f3nation/f3map/modules/org/services"
	"github.com/f3nation/f3map/pkg/application"
	"github.com/f3nation/f3map/pkg/authz"
	"github.com/f3nation/f3map/pkg/configuration"
	"github.com/f3nation/f3map/pkg/middleware"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	policy, err := authz.NewService(authz.Config{
		ModelPath:  conf.Authz.ModelPath,
		PolicyPath: conf.Authz.PolicyPath,
		Logger:     app.Logger(),
	})
	if err != nil {
		return errors.Wrap(err, "load authz policy")
	}

	orgRepo := persistence.NewOrgRepository()
	tree := services.NewOrgTree(orgRepo, newAncestorCache(conf))
	roles := services.NewRoleStore(persistence.NewRoleRepository())
	resolver := services.NewAuthorityResolver(tree, roles, policy)
	ledger := services.NewRequestLedger(services.LedgerDeps{
		Tx:        persistence.NewPoolTxRunner(app.DB()),
		Requests:  persistence.NewUpdateRequestRepository(),
		Tree:      tree,
		Roles:     roles,
		Resolver:  resolver,
		Validator: services.NewRequestValidator(),
		Policy:    services.NewAutoApprovalPolicy(conf.UpdateRequests.AutoApproveMode),
		Engine:    services.NewCommitEngine(tree, orgRepo, persistence.NewLocationRepository(), persistence.NewEventRepository()),
		Publisher: app.EventPublisher(),
	}, services.LedgerOptions{
		DirectCommit:    conf.UpdateRequests.DirectCommit,
		DefaultPageSize: conf.UpdateRequests.PageSize,
		MaxPageSize:     conf.UpdateRequests.MaxPageSize,
	})

	app.RegisterServices(tree, roles, resolver, ledger)
	handlers.RegisterAuditEventHandlers(app)

	auth := middleware.HeaderAuthenticator{Header: conf.UserIDHeader}
	app.RegisterControllers(
		controllers.NewUpdateRequestController(app, auth),
		controllers.NewOrgTreeController(app, auth),
	)
	return nil
}

func (m *Module) Name() string {
	return "org"
}

func newAncestorCache(conf *configuration.Configuration) services.AncestorCache {
	switch strings.ToLower(conf.OrgCacheBackend) {
	case "none":
		return services.NewNoopAncestorCache()
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: conf.RedisURL})
		return services.NewRedisAncestorCache(client, "", conf.OrgCacheTTL)
	default:
		return services.NewMemoryAncestorCache()
	}
}
