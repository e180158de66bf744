package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type AnswerHandler struct {
	answers    AnswerService
	votes      VoteService
	acceptance AcceptanceService
}

func NewAnswerHandler(answers AnswerService, votes VoteService, acceptance AcceptanceService) *AnswerHandler {
	return &AnswerHandler{answers: answers, votes: votes, acceptance: acceptance}
}

func (h *AnswerHandler) UpdateAnswer(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req models.AnswerRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.answers.Update(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answer updated successfully", "answer": a})
}

func (h *AnswerHandler) DeleteAnswer(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	if err := h.answers.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answer deleted successfully"})
}

// VoteAnswer toggles the caller's vote: a repeat removes it, the opposite
// type switches it.
func (h *AnswerHandler) VoteAnswer(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Vote type must be "up" or "down"`})
		return
	}
	res, err := h.votes.Cast(c.Request.Context(), id, c.Param("id"), req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AnswerHandler) GetVotes(c *gin.Context) {
	count, err := h.votes.Count(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voteCount": count})
}

// AcceptAnswer marks the answer accepted. Only the question's author may do so.
func (h *AnswerHandler) AcceptAnswer(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	a, err := h.acceptance.Accept(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answer accepted successfully", "answer": a})
}
