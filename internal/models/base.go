package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newID fills an empty string primary key before insert.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error {
	newID(&u.ID)
	return nil
}

func (q *Question) BeforeCreate(*gorm.DB) error {
	newID(&q.ID)
	return nil
}

func (a *Answer) BeforeCreate(*gorm.DB) error {
	newID(&a.ID)
	return nil
}

func (v *Vote) BeforeCreate(*gorm.DB) error {
	newID(&v.ID)
	return nil
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	newID(&c.ID)
	return nil
}
