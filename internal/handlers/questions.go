package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/service"
)

type QuestionHandler struct {
	questions QuestionService
	answers   AnswerService
}

func NewQuestionHandler(questions QuestionService, answers AnswerService) *QuestionHandler {
	return &QuestionHandler{questions: questions, answers: answers}
}

// ListQuestions returns a page of questions under the query's search, tag,
// filter and sort settings.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	q, err := service.ParseListQuery(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.questions.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	q, err := h.questions.Get(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": q})
}

// CreateQuestion creates a new question (PROTECTED - requires authentication)
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req models.CreateQuestionRequest
	if !bind(c, &req) {
		return
	}
	q, err := h.questions.Create(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Question created successfully", "question": q})
}

func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req models.UpdateQuestionRequest
	if !bind(c, &req) {
		return
	}
	q, err := h.questions.Update(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question updated successfully", "question": q})
}

func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	if err := h.questions.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

func (h *QuestionHandler) PopularTags(c *gin.Context) {
	tags, err := h.questions.PopularTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"popularTags": tags})
}

// ListAnswers returns the question's answers in display order. The caller's
// own vote is attached when a token is present.
func (h *QuestionHandler) ListAnswers(c *gin.Context) {
	answers, err := h.answers.ListForQuestion(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": answers, "totalCount": len(answers)})
}

func (h *QuestionHandler) CreateAnswer(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	var req models.AnswerRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.answers.Create(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Answer created successfully", "answer": a})
}
