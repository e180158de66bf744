package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/service"
)

type CommentHandler struct {
	comments CommentService
}

func NewCommentHandler(comments CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// GetComments returns a handler listing comments under the given parent.
func (h *CommentHandler) GetComments(p service.CommentParent) gin.HandlerFunc {
	return func(c *gin.Context) {
		comments, err := h.comments.List(c.Request.Context(), p, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"comments": comments})
	}
}

// CreateComment returns a handler adding a comment to the given parent.
func (h *CommentHandler) CreateComment(p service.CommentParent) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := caller(c)
		if !ok {
			return
		}
		var req models.CreateCommentRequest
		if !bind(c, &req) {
			return
		}
		comment, err := h.comments.Create(c.Request.Context(), id, p, c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Comment created successfully", "comment": comment})
	}
}
