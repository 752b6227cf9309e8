package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/adiwijaya/identity-service/internal/interface/http"
)

// Module wires the identity HTTP handlers into routes.
// POST /api/register, POST /api/login, GET|PUT /api/profile/:id,
// GET /api/users/search — all registered under the given RouterGroup.
type Module struct {
	Handler *handlers.UserHandler
}

func New(h *handlers.UserHandler) *Module {
	return &Module{Handler: h}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	rg.POST("/register", m.Handler.Register)
	rg.POST("/login", m.Handler.Login)
	rg.GET("/profile/:id", m.Handler.GetProfile)
	rg.PUT("/profile/:id", m.Handler.UpdateProfile)
	rg.GET("/users/search", m.Handler.Search)
}
