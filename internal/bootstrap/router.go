package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	httpapi "github.com/geovista/projects-backend/internal/api/http"
	"github.com/geovista/projects-backend/internal/api/http/middleware"
	"github.com/geovista/projects-backend/internal/assets"
	"github.com/geovista/projects-backend/internal/auth"
	"github.com/geovista/projects-backend/internal/projects"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Environment string
	CORSOrigin  string
	DB          *pgxpool.Pool
	Verifier    *auth.Verifier
	ProjectSvc  *projects.Service
	AssetStore  *assets.S3Store
	Tracker     *assets.UploadTracker
	TempPrefix  string
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	if dep.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{dep.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: dep.CORSOrigin != "*",
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api")
	api.Use(middleware.RequestID())
	api.Use(auth.RequireUser(dep.Verifier))

	projects.Register(api.Group("/projects"), dep.ProjectSvc)
	assets.Register(api.Group("/assets"), dep.AssetStore, dep.Tracker, dep.TempPrefix)

	return r
}
