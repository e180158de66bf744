package service

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// acceptanceState is the accepted-answer slot of one question, held under a
// row lock on the question for the life of the transaction.
type acceptanceState struct {
	questionID string
	authorID   string
	accepted   []string
}

func lockAcceptanceState(tx *gorm.DB, questionID string) (*acceptanceState, error) {
	var q models.Question
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "author_id").
		Take(&q, "id = ?", questionID).Error
	if err != nil {
		return nil, err
	}

	st := &acceptanceState{questionID: q.ID, authorID: q.AuthorID}
	err = tx.Model(&models.Answer{}).
		Where("question_id = ? AND is_accepted = ?", questionID, true).
		Pluck("id", &st.accepted).Error
	return st, err
}

// moveTo clears every other accepted answer, then marks answerID.
func (st *acceptanceState) moveTo(tx *gorm.DB, answerID string) error {
	var others []string
	for _, id := range st.accepted {
		if id != answerID {
			others = append(others, id)
		}
	}
	if len(others) > 0 {
		err := tx.Model(&models.Answer{}).
			Where("id IN ?", others).
			UpdateColumn("is_accepted", false).Error
		if err != nil {
			return err
		}
	}
	err := tx.Model(&models.Answer{}).
		Where("id = ? AND question_id = ?", answerID, st.questionID).
		UpdateColumn("is_accepted", true).Error
	if err != nil {
		return err
	}
	st.accepted = []string{answerID}
	return nil
}

// Acceptance grants the accepted-answer mark.
type Acceptance struct {
	db *gorm.DB
}

func NewAcceptance(db *gorm.DB) *Acceptance {
	return &Acceptance{db: db}
}

// Accept marks answerID as its question's accepted answer. Only the question's
// author may do this; re-accepting the current answer is a no-op.
func (s *Acceptance) Accept(ctx context.Context, caller auth.Identity, answerID string) (*models.Answer, error) {
	if caller.UserID == "" {
		return nil, apperr.Unauthenticated("Authentication required")
	}
	db := s.db.WithContext(ctx)

	var target models.Answer
	if err := db.Select("id", "question_id").Take(&target, "id = ?", answerID).Error; err != nil {
		return nil, notFoundOr(err, "Answer not found", "Failed to accept answer")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		st, err := lockAcceptanceState(tx, target.QuestionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Question not found")
		}
		if err != nil {
			return err
		}
		if !auth.CanAccept(caller, st.authorID) {
			return apperr.Forbidden("Only the question owner can accept answers")
		}
		return st.moveTo(tx, answerID)
	})
	if err != nil {
		return nil, internal("Failed to accept answer", err)
	}
	metrics.AnswersAccepted.Inc()

	answer, err := loadAnswer(db, answerID)
	if err != nil {
		return nil, notFoundOr(err, "Answer not found", "Failed to accept answer")
	}
	return answer, nil
}
