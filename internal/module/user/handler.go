package user

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/userdesk/internal/domain"
	"github.com/simp-lee/userdesk/internal/pkg"
)

// UserHandler handles REST API requests for the user resource.
type UserHandler struct {
	svc domain.UserService
}

// NewUserHandler creates a new UserHandler with the given service.
func NewUserHandler(svc domain.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create handles POST /users.
func (h *UserHandler) Create(c *gin.Context) {
	var req domain.UserInput
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, domain.UserMutationResult{
		UserDetail: domain.DetailOf(user),
		Message:    "User created successfully",
	})
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.DetailOf(user))
}

// List handles GET /users.
func (h *UserHandler) List(c *gin.Context) {
	page, err := h.svc.ListUsers(c.Request.Context(), pkg.ParseUserQuery(c))
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// Update handles PATCH /users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req domain.UserPatch
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	user, err := h.svc.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.UserMutationResult{
		UserDetail: domain.DetailOf(user),
		Message:    "User updated successfully",
	})
}

// Delete handles DELETE /users/:id.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		pkg.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, domain.DeleteResult{
		ID:      id,
		Message: fmt.Sprintf("User with ID %d deleted successfully", id),
	})
}

// parseID reads the :id path parameter. It writes a 422 and returns false
// when the value is not a positive integer.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnprocessableEntity, pkg.ErrorResponse{
			Detail: "Validation error",
			Errors: map[string]string{"id": "must be a positive integer"},
		})
		return 0, false
	}
	return uint(id), true
}
