package models

import "time"

// Comment hangs off either a question or an answer; exactly one parent id is set.
type Comment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	AuthorID   string    `gorm:"size:36;not null;index" json:"authorId"`
	Author     *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	QuestionID *string   `gorm:"size:36;index" json:"questionId,omitempty"`
	AnswerID   *string   `gorm:"size:36;index" json:"answerId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=1000"`
}
