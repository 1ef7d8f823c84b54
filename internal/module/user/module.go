package user

import "github.com/gin-gonic/gin"

// UserModule implements the app.Module interface for the user domain.
type UserModule struct {
	handler *UserHandler
}

// NewModule creates a new UserModule with the given handler.
// Panics if h is nil.
func NewModule(h *UserHandler) *UserModule {
	if h == nil {
		panic("user.NewModule: handler must not be nil")
	}
	return &UserModule{handler: h}
}

// RegisterRoutes mounts the users resource on r.
func (m *UserModule) RegisterRoutes(r gin.IRouter) {
	users := r.Group("/users")
	users.GET("", m.handler.List)
	users.POST("", m.handler.Create)
	users.GET("/:id", m.handler.Get)
	users.PATCH("/:id", m.handler.Update)
	users.DELETE("/:id", m.handler.Delete)
}
