package models

import "time"

type Answer struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	QuestionID string    `gorm:"size:36;not null;uniqueIndex:idx_answers_question_author" json:"questionId"`
	AuthorID   string    `gorm:"size:36;not null;uniqueIndex:idx_answers_question_author;index" json:"authorId"`
	Author     *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	IsAccepted bool      `gorm:"not null;default:false" json:"isAccepted"`
	Votes      []Vote    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Comments   []Comment `gorm:"foreignKey:AnswerID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Derived on read.
	VoteCount    VoteCount `gorm:"-" json:"voteCount"`
	CommentCount int64     `gorm:"-" json:"commentCount"`
	UserVote     *string   `gorm:"-" json:"userVote,omitempty"`
}

type AnswerRequest struct {
	Content string `json:"content" binding:"required,min=20,max=10000"`
}

// QuestionRef is the parent question shown alongside a user's answer.
type QuestionRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UserAnswer is an answer listed on its author's profile.
type UserAnswer struct {
	Answer
	Question QuestionRef `json:"question"`
}
