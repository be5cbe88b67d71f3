package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	adminUC "traino/internal/application/admin/usecases"
	allocationUC "traino/internal/application/allocation/usecases"
	catalogUC "traino/internal/application/catalog/usecases"
	entitlementUC "traino/internal/application/entitlement/usecases"
	tokenUC "traino/internal/application/token/usecases"
	"traino/internal/infrastructure/cache"
	"traino/internal/infrastructure/config"
	"traino/internal/infrastructure/repository"
	"traino/internal/interfaces/http/handlers"
	"traino/internal/interfaces/http/middleware"
	"traino/internal/shared/db"
	"traino/internal/shared/logger"
)

// Router wires the HTTP surface: repositories, use cases, handlers, and
// middleware around a single gin engine.
type Router struct {
	engine             *gin.Engine
	cfg                *config.Config
	log                logger.Interface
	healthHandler      *handlers.HealthHandler
	entitlementHandler *handlers.EntitlementHandler
	allocationHandler  *handlers.AllocationHandler
	adminHandler       *handlers.AdminHandler
	planHandler        *handlers.PlanHandler
}

// NewRouter creates a new HTTP router with all dependencies. The redis client
// is optional; without it entitlement reads always hit the store.
func NewRouter(gdb *gorm.DB, redisClient *redis.Client, cfg *config.Config, log logger.Interface) *Router {
	engine := gin.New()

	planRepo := repository.NewPlanRepository(gdb, log)
	assignmentRepo := repository.NewPlanAssignmentRepository(gdb, log)
	tokenRepo := repository.NewCapacityTokenRepository(gdb, log)
	consumerRepo := repository.NewConsumerRepository(gdb, log)
	eventRepo := repository.NewAllocationEventRepository(gdb, log)
	txManager := db.NewTransactionManager(gdb)

	resolveEntitlementUC := entitlementUC.NewResolveEntitlementUseCase(assignmentRepo, tokenRepo, consumerRepo, log)
	listEventsUC := allocationUC.NewListAllocationEventsUseCase(eventRepo, log)
	allocateSlotUC := allocationUC.NewAllocateSlotUseCase(
		consumerRepo, assignmentRepo, tokenRepo, eventRepo, txManager, cfg.Allocation.Retries(), log,
	)
	releaseSlotUC := allocationUC.NewReleaseSlotUseCase(consumerRepo, tokenRepo, eventRepo, txManager, log)
	assignPlanUC := adminUC.NewAssignPlanUseCase(planRepo, assignmentRepo, eventRepo, txManager, log)
	revokePlanUC := adminUC.NewRevokePlanUseCase(assignmentRepo, consumerRepo, eventRepo, txManager, log)
	createTokensUC := tokenUC.NewCreateTokensUseCase(tokenRepo, eventRepo, txManager, log)
	releaseTokenUC := tokenUC.NewReleaseTokenUseCase(tokenRepo, log)

	createPlanUC := catalogUC.NewCreatePlanUseCase(planRepo, log)
	updatePlanUC := catalogUC.NewUpdatePlanUseCase(planRepo, log)
	getPlanUC := catalogUC.NewGetPlanUseCase(planRepo, log)
	listPlansUC := catalogUC.NewListPlansUseCase(planRepo, log)
	deactivatePlanUC := catalogUC.NewDeactivatePlanUseCase(planRepo, log)

	if redisClient != nil {
		entCache := cache.NewRedisEntitlementCache(redisClient, cfg.Allocation.EntitlementCacheTTL(), log)
		resolveEntitlementUC.SetCache(entCache)
		allocateSlotUC.SetCache(entCache)
		releaseSlotUC.SetCache(entCache)
		assignPlanUC.SetCache(entCache)
		revokePlanUC.SetCache(entCache)
		createTokensUC.SetCache(entCache)
		releaseTokenUC.SetCache(entCache)
	}

	return &Router{
		engine:             engine,
		cfg:                cfg,
		log:                log,
		healthHandler:      handlers.NewHealthHandler(gdb),
		entitlementHandler: handlers.NewEntitlementHandler(resolveEntitlementUC, listEventsUC, log),
		allocationHandler:  handlers.NewAllocationHandler(allocateSlotUC, releaseSlotUC, log),
		adminHandler:       handlers.NewAdminHandler(assignPlanUC, revokePlanUC, createTokensUC, releaseTokenUC, log),
		planHandler: handlers.NewPlanHandler(
			createPlanUC, updatePlanUC, getPlanUC, listPlansUC, deactivatePlanUC, log,
		),
	}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Logger(r.log))
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))

	r.engine.GET("/health", r.healthHandler.HealthCheck)
	r.engine.GET("/ready", r.healthHandler.ReadyCheck)

	trainers := r.engine.Group("/trainers")
	{
		trainers.GET("/:trainer_id/entitlement", r.entitlementHandler.GetEntitlement)
		trainers.GET("/:trainer_id/events", r.entitlementHandler.ListEvents)
		trainers.POST("/:trainer_id/allocations", r.allocationHandler.Allocate)
		trainers.DELETE("/:trainer_id/consumers/:id", r.allocationHandler.ReleaseConsumer)
	}

	plans := r.engine.Group("/plans")
	{
		plans.GET("", r.planHandler.ListPlans)
		plans.GET("/:id", r.planHandler.GetPlan)
	}

	admin := r.engine.Group("/admin")
	admin.Use(middleware.AdminIdentity(r.log))
	{
		admin.POST("/trainers/:trainer_id/plan", r.adminHandler.AssignPlan)
		admin.DELETE("/trainers/:trainer_id/plan", r.adminHandler.RevokePlan)
		admin.POST("/trainers/:trainer_id/tokens", r.adminHandler.AddTokens)
		admin.POST("/tokens/:id/release", r.adminHandler.ReleaseToken)

		admin.POST("/plans", r.planHandler.CreatePlan)
		admin.PUT("/plans/:id", r.planHandler.UpdatePlan)
		admin.DELETE("/plans/:id", r.planHandler.DeactivatePlan)
	}
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
