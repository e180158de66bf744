package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// CommentParent selects which entity a comment hangs off.
type CommentParent int

const (
	OnQuestion CommentParent = iota
	OnAnswer
)

func (p CommentParent) column() string {
	if p == OnAnswer {
		return "answer_id"
	}
	return "question_id"
}

func (p CommentParent) notFound() string {
	if p == OnAnswer {
		return "Answer not found"
	}
	return "Question not found"
}

type Comments struct {
	db *gorm.DB
}

func NewComments(db *gorm.DB) *Comments {
	return &Comments{db: db}
}

func (s *Comments) parentExists(db *gorm.DB, p CommentParent, id string) error {
	var model interface{} = &models.Question{}
	if p == OnAnswer {
		model = &models.Answer{}
	}
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return internal("Failed to load comments", err)
	}
	if n == 0 {
		return apperr.NotFound(p.notFound())
	}
	return nil
}

// List returns a parent's comments oldest first.
func (s *Comments) List(ctx context.Context, p CommentParent, parentID string) ([]models.Comment, error) {
	db := s.db.WithContext(ctx)
	if err := s.parentExists(db, p, parentID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	err := db.Preload("Author", authorSummary).
		Where(p.column()+" = ?", parentID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, internal("Failed to fetch comments", err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

func (s *Comments) Create(ctx context.Context, caller auth.Identity, p CommentParent, parentID string, req models.CreateCommentRequest) (*models.Comment, error) {
	db := s.db.WithContext(ctx)
	if err := s.parentExists(db, p, parentID); err != nil {
		return nil, err
	}
	c := models.Comment{Content: req.Content, AuthorID: caller.UserID}
	if p == OnAnswer {
		c.AnswerID = &parentID
	} else {
		c.QuestionID = &parentID
	}
	if err := db.Create(&c).Error; err != nil {
		return nil, internal("Failed to create comment", err)
	}
	if err := db.Preload("Author", authorSummary).Take(&c, "id = ?", c.ID).Error; err != nil {
		return nil, internal("Failed to create comment", err)
	}
	return &c, nil
}
