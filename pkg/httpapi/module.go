package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/fx"

	"estatehub-marketplace/pkg/health"
	"estatehub-marketplace/pkg/middleware"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewRouter),
)

type RouterParams struct {
	fx.In
	Mux    *runtime.ServeMux
	Health health.HealthService
}

// NewRouter wraps the gateway mux in a gin engine that owns the health
// endpoints and error rendering.
func NewRouter(p RouterParams) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Error())

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)

	r.NoRoute(gin.WrapH(p.Mux))

	return r
}
