package service

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// VoteOutcome says which branch of the toggle protocol ran.
type VoteOutcome string

const (
	VoteRegistered VoteOutcome = "registered"
	VoteUpdated    VoteOutcome = "updated"
	VoteRemoved    VoteOutcome = "removed"
)

func (o VoteOutcome) message() string {
	switch o {
	case VoteRemoved:
		return "Vote removed"
	case VoteUpdated:
		return "Vote updated"
	default:
		return "Vote registered"
	}
}

// Votes is the vote ledger and aggregator.
type Votes struct {
	db *gorm.DB
}

func NewVotes(db *gorm.DB) *Votes {
	return &Votes{db: db}
}

// Cast applies the toggle protocol for caller on answerID:
// no vote creates one, the same type removes it, the opposite type switches it.
func (s *Votes) Cast(ctx context.Context, caller auth.Identity, answerID, rawType string) (*models.VoteResponse, error) {
	if caller.UserID == "" {
		return nil, apperr.Unauthenticated("Authentication required")
	}
	voteType, ok := models.ParseVoteType(rawType)
	if !ok {
		return nil, apperr.Invalid(`Vote type must be "up" or "down"`)
	}

	resp, outcome, err := s.cast(ctx, caller.UserID, answerID, voteType)
	if database.IsUniqueViolation(err) {
		// A concurrent first vote from the same user won the insert; rerun against its row.
		metrics.VoteRetries.Inc()
		log.Printf("castVote: retrying after conflict user=%s answer=%s", caller.UserID, answerID)
		resp, outcome, err = s.cast(ctx, caller.UserID, answerID, voteType)
	}
	if err != nil {
		return nil, internal("Failed to vote on answer", err)
	}
	metrics.VotesCast.WithLabelValues(string(outcome)).Inc()
	return resp, nil
}

func (s *Votes) cast(ctx context.Context, userID, answerID string, voteType models.VoteType) (*models.VoteResponse, VoteOutcome, error) {
	var (
		resp    *models.VoteResponse
		outcome VoteOutcome
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// FOR KEY SHARE keeps the answer from being deleted under us; edits and other voters proceed.
		var answer models.Answer
		err := tx.Clauses(clause.Locking{Strength: "KEY SHARE"}).Select("id").Take(&answer, "id = ?", answerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Answer not found")
		}
		if err != nil {
			return err
		}

		outcome, err = toggleVote(tx, userID, answerID, voteType)
		if err != nil {
			return err
		}

		counts, err := voteCounts(tx, []string{answerID})
		if err != nil {
			return err
		}

		resp = &models.VoteResponse{
			Message:   outcome.message(),
			VoteCount: counts[answerID],
		}
		if outcome != VoteRemoved {
			w := voteType.Wire()
			resp.UserVote = &w
		}
		return nil
	})
	return resp, outcome, err
}

// toggleVote performs the read-then-branch under a row lock on the existing vote.
// When no row exists the insert is guarded by idx_votes_user_answer.
func toggleVote(tx *gorm.DB, userID, answerID string, voteType models.VoteType) (VoteOutcome, error) {
	var existing models.Vote
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND answer_id = ?", userID, answerID).
		Take(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		vote := models.Vote{UserID: userID, AnswerID: answerID, Type: voteType}
		if err := tx.Create(&vote).Error; err != nil {
			return "", err
		}
		return VoteRegistered, nil
	case err != nil:
		return "", err
	case existing.Type == voteType:
		if err := tx.Delete(&existing).Error; err != nil {
			return "", err
		}
		return VoteRemoved, nil
	default:
		if err := tx.Model(&existing).Update("type", voteType).Error; err != nil {
			return "", err
		}
		return VoteUpdated, nil
	}
}

// Count returns the aggregate for one answer; no votes is {0,0,0}.
func (s *Votes) Count(ctx context.Context, answerID string) (models.VoteCount, error) {
	counts, err := voteCounts(s.db.WithContext(ctx), []string{answerID})
	if err != nil {
		return models.VoteCount{}, internal("Failed to count votes", err)
	}
	return counts[answerID], nil
}

// Counts is the batch form of Count, one grouped query for all ids.
func (s *Votes) Counts(ctx context.Context, answerIDs []string) (map[string]models.VoteCount, error) {
	counts, err := voteCounts(s.db.WithContext(ctx), answerIDs)
	if err != nil {
		return nil, internal("Failed to count votes", err)
	}
	return counts, nil
}

func voteCounts(db *gorm.DB, answerIDs []string) (map[string]models.VoteCount, error) {
	out := make(map[string]models.VoteCount, len(answerIDs))
	if len(answerIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		AnswerID string
		Type     models.VoteType
		N        int64
	}
	err := db.Model(&models.Vote{}).
		Select("answer_id, type, COUNT(*) AS n").
		Where("answer_id IN ?", answerIDs).
		Group("answer_id, type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	up := map[string]int64{}
	down := map[string]int64{}
	for _, r := range rows {
		switch r.Type {
		case models.VoteUp:
			up[r.AnswerID] = r.N
		case models.VoteDown:
			down[r.AnswerID] = r.N
		}
	}
	for _, id := range answerIDs {
		out[id] = models.NewVoteCount(up[id], down[id])
	}
	return out, nil
}

// userVotes returns userID's vote type per answer, for answers they voted on.
func userVotes(db *gorm.DB, userID string, answerIDs []string) (map[string]models.VoteType, error) {
	out := map[string]models.VoteType{}
	if userID == "" || len(answerIDs) == 0 {
		return out, nil
	}
	var votes []models.Vote
	err := db.Select("answer_id", "type").
		Where("user_id = ? AND answer_id IN ?", userID, answerIDs).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		out[v.AnswerID] = v.Type
	}
	return out, nil
}
