package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const alreadyAnswered = "You have already answered this question. You can edit your existing answer instead."

type Answers struct {
	db *gorm.DB
}

func NewAnswers(db *gorm.DB) *Answers {
	return &Answers{db: db}
}

// decorateAnswers attaches vote aggregates, comment counts and the viewer's
// own vote, then sorts into display order.
func decorateAnswers(db *gorm.DB, answers []models.Answer, viewerID string) error {
	ids := make([]string, len(answers))
	for i, a := range answers {
		ids[i] = a.ID
	}
	counts, err := voteCounts(db, ids)
	if err != nil {
		return err
	}
	comments, err := commentCounts(db, "answer_id", ids)
	if err != nil {
		return err
	}
	mine, err := userVotes(db, viewerID, ids)
	if err != nil {
		return err
	}
	for i := range answers {
		a := &answers[i]
		a.VoteCount = counts[a.ID]
		a.CommentCount = comments[a.ID]
		if t, ok := mine[a.ID]; ok {
			w := t.Wire()
			a.UserVote = &w
		}
	}
	SortAnswers(answers)
	return nil
}

func loadAnswer(db *gorm.DB, id string) (*models.Answer, error) {
	var a models.Answer
	if err := db.Preload("Author", authorSummary).Take(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	answers := []models.Answer{a}
	if err := decorateAnswers(db, answers, ""); err != nil {
		return nil, err
	}
	return &answers[0], nil
}

// ListForQuestion returns a question's answers in display order with their comments.
func (s *Answers) ListForQuestion(ctx context.Context, questionID, viewerID string) ([]models.Answer, error) {
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&models.Question{}).Where("id = ?", questionID).Count(&n).Error; err != nil {
		return nil, internal("Failed to fetch answers", err)
	}
	if n == 0 {
		return nil, apperr.NotFound("Question not found")
	}

	var answers []models.Answer
	err := db.
		Preload("Author", authorSummary).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Author", authorSummary).
		Where("question_id = ?", questionID).
		Find(&answers).Error
	if err != nil {
		return nil, internal("Failed to fetch answers", err)
	}
	if err := decorateAnswers(db, answers, viewerID); err != nil {
		return nil, internal("Failed to fetch answers", err)
	}
	if answers == nil {
		answers = []models.Answer{}
	}
	return answers, nil
}

// Create adds caller's answer. A second answer by the same user to the same
// question is rejected, including when two requests race.
func (s *Answers) Create(ctx context.Context, caller auth.Identity, questionID string, req models.AnswerRequest) (*models.Answer, error) {
	db := s.db.WithContext(ctx)

	var q models.Question
	if err := db.Select("id").Take(&q, "id = ?", questionID).Error; err != nil {
		return nil, notFoundOr(err, "Question not found", "Failed to create answer")
	}

	var n int64
	err := db.Model(&models.Answer{}).
		Where("question_id = ? AND author_id = ?", questionID, caller.UserID).
		Count(&n).Error
	if err != nil {
		return nil, internal("Failed to create answer", err)
	}
	if n > 0 {
		return nil, apperr.Invalid(alreadyAnswered)
	}

	a := models.Answer{Content: req.Content, QuestionID: questionID, AuthorID: caller.UserID}
	if err := db.Create(&a).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Invalid(alreadyAnswered)
		}
		return nil, internal("Failed to create answer", err)
	}

	created, err := loadAnswer(db, a.ID)
	if err != nil {
		return nil, internal("Failed to create answer", err)
	}
	return created, nil
}

// Update replaces the content. Owner or admin only.
func (s *Answers) Update(ctx context.Context, caller auth.Identity, id string, req models.AnswerRequest) (*models.Answer, error) {
	db := s.db.WithContext(ctx)
	if err := s.authorize(db, caller, id); err != nil {
		return nil, err
	}
	if err := db.Model(&models.Answer{ID: id}).Update("content", req.Content).Error; err != nil {
		return nil, internal("Failed to update answer", err)
	}
	a, err := loadAnswer(db, id)
	if err != nil {
		return nil, notFoundOr(err, "Answer not found", "Failed to update answer")
	}
	return a, nil
}

// Delete removes the answer; its votes and comments cascade.
func (s *Answers) Delete(ctx context.Context, caller auth.Identity, id string) error {
	db := s.db.WithContext(ctx)
	if err := s.authorize(db, caller, id); err != nil {
		return err
	}
	res := db.Delete(&models.Answer{}, "id = ?", id)
	if res.Error != nil {
		return internal("Failed to delete answer", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Answer not found")
	}
	return nil
}

func (s *Answers) authorize(db *gorm.DB, caller auth.Identity, id string) error {
	var a models.Answer
	if err := db.Select("id", "author_id").Take(&a, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "Answer not found", "Failed to load answer")
	}
	if !auth.CanModify(caller, a.AuthorID) {
		return apperr.Forbidden("Access denied. Owner or admin privileges required.")
	}
	return nil
}
