package models

import (
	"strings"
	"time"
)

type VoteType string

const (
	VoteUp   VoteType = "UP"
	VoteDown VoteType = "DOWN"
)

// ParseVoteType accepts "up" or "down" in any case.
func ParseVoteType(s string) (VoteType, bool) {
	switch VoteType(strings.ToUpper(strings.TrimSpace(s))) {
	case VoteUp:
		return VoteUp, true
	case VoteDown:
		return VoteDown, true
	}
	return "", false
}

// Wire is the lower-case form used in API responses.
func (t VoteType) Wire() string { return strings.ToLower(string(t)) }

// Vote is one user's opinion on one answer. (user_id, answer_id) is unique.
type Vote struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Type      VoteType  `gorm:"size:4;not null" json:"type"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_votes_user_answer" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AnswerID  string    `gorm:"size:36;not null;uniqueIndex:idx_votes_user_answer;index" json:"answerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VoteCount is always derived from vote rows, never stored.
type VoteCount struct {
	UpVotes   int64 `json:"upVotes"`
	DownVotes int64 `json:"downVotes"`
	Total     int64 `json:"total"`
}

func NewVoteCount(up, down int64) VoteCount {
	return VoteCount{UpVotes: up, DownVotes: down, Total: up - down}
}

type VoteRequest struct {
	Type string `json:"type"`
}

type VoteResponse struct {
	Message   string    `json:"message"`
	VoteCount VoteCount `json:"voteCount"`
	UserVote  *string   `json:"userVote"`
}
