package router

import (
	"time"

	"farmastock/internal/config"
	"farmastock/internal/handler"
	"farmastock/internal/middleware"
	"farmastock/internal/repository"
	"farmastock/internal/service"
	"farmastock/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	bodegaRepo := repository.NewBodegaRepository(db, cfg.LockTimeoutSeconds)
	loteRepo := repository.NewLoteRepository(db)
	proveedorRepo := repository.NewProveedorRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	recepcionSvc := service.NewRecepcionService(loteRepo, bodegaRepo, proveedorRepo, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	lotesH := handler.NewLotesHandler(recepcionSvc)
	bodegasH := handler.NewBodegasHandler(recepcionSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		lotes := v1.Group("/lotes", middleware.RequireRole("bodeguero", "supervisor", "administrador"))
		{
			lotes.POST("/recepcion", lotesH.Recibir)
			lotes.POST("/recepcion-distribuida", lotesH.RecibirDistribuida)
		}

		v1.GET("/bodegas/:id/ocupacion",
			middleware.RequireRole("bodeguero", "supervisor", "administrador"),
			bodegasH.Ocupacion)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
