package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/service"
)

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GetUserProfile returns a user's profile
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	p, err := h.users.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": p})
}

// GetUserQuestions lists a user's questions, newest first
func (h *UserHandler) GetUserQuestions(c *gin.Context) {
	p, err := service.ParsePageQuery(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.users.Questions(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetUserAnswers lists a user's answers, newest first
func (h *UserHandler) GetUserAnswers(c *gin.Context) {
	p, err := service.ParsePageQuery(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.users.Answers(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdateUserRole changes another user's role (ADMIN only)
func (h *UserHandler) UpdateUserRole(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}
	u, err := h.users.SetRole(c.Request.Context(), id, c.Param("id"), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User role updated successfully", "user": u})
}
