// Package service implements the Q&A rules: the vote ledger and its aggregates,
// answer acceptance, and the ranked listings built from both.
package service

import (
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
)

// authorSummary limits preloaded authors to their public fields.
func authorSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "avatar")
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error and anything else to Internal.
func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFound)
	}
	return internal(op, err)
}

// internal logs the cause and returns an error safe to show callers.
func internal(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	log.Printf("%s: %v", op, err)
	return apperr.Internal(op, err)
}
