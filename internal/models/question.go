package models

import (
	"time"

	"github.com/lib/pq"
)

type Question struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Tags        pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"tags"`
	AuthorID    string         `gorm:"size:36;not null;index" json:"authorId"`
	Author      *User          `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Answers     []Answer       `gorm:"constraint:OnDelete:CASCADE" json:"answers,omitempty"`
	Comments    []Comment      `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`

	// Derived on read.
	AnswerCount       int64 `gorm:"-" json:"answerCount"`
	CommentCount      int64 `gorm:"-" json:"commentCount"`
	TotalVotes        int64 `gorm:"-" json:"totalVotes"`
	HasAcceptedAnswer bool  `gorm:"-" json:"hasAcceptedAnswer"`
}

type CreateQuestionRequest struct {
	Title       string   `json:"title" binding:"required,min=10,max=200"`
	Description string   `json:"description" binding:"required,min=20,max=10000"`
	Tags        []string `json:"tags" binding:"required,min=1,max=10,dive,min=1,max=20"`
}

type UpdateQuestionRequest struct {
	Title       *string  `json:"title" binding:"omitempty,min=10,max=200"`
	Description *string  `json:"description" binding:"omitempty,min=20,max=10000"`
	Tags        []string `json:"tags" binding:"omitnil,min=1,max=10,dive,min=1,max=20"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}
