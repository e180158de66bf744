// Package testutil starts a throwaway postgres for integration tests and
// seeds fixtures into it.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

var (
	once     sync.Once
	shared   *gorm.DB
	setupErr error
)

func start() {
	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("stackit_test"),
		tcpostgres.WithUsername("stackit"),
		tcpostgres.WithPassword("stackit"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		setupErr = fmt.Errorf("start postgres container: %w", err)
		return
	}
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		setupErr = fmt.Errorf("connection string: %w", err)
		return
	}
	db, err := database.Open(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		setupErr = err
		return
	}
	if err := database.Migrate(db); err != nil {
		setupErr = err
		return
	}
	shared = db
}

// DB returns a migrated, empty database. The container is shared by every
// test in the binary and reaped when the process exits.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in -short mode")
	}
	once.Do(start)
	if setupErr != nil {
		t.Skipf("postgres unavailable: %v", setupErr)
	}
	err := shared.Exec("TRUNCATE users, questions, answers, votes, comments CASCADE").Error
	if err != nil {
		t.Fatalf("Failed to reset database: %v", err)
	}
	return shared
}

var (
	hashOnce sync.Once
	hash     string
)

// passwordHash hashes "password" once at the cheapest bcrypt cost.
func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		hash = string(b)
	})
	return hash
}

// CreateUser inserts a user with the given role; the password is "password".
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	u := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: passwordHash(t),
		Role:     role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return u
}

func CreateQuestion(t *testing.T, db *gorm.DB, authorID, title string, tags ...string) models.Question {
	t.Helper()
	if len(tags) == 0 {
		tags = []string{"general"}
	}
	q := models.Question{
		Title:       title,
		Description: "A description long enough to pass validation: " + title,
		Tags:        pq.StringArray(tags),
		AuthorID:    authorID,
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("Failed to create question: %v", err)
	}
	return q
}

func CreateAnswer(t *testing.T, db *gorm.DB, questionID, authorID string) models.Answer {
	t.Helper()
	a := models.Answer{
		Content:    "An answer with enough content to be valid.",
		QuestionID: questionID,
		AuthorID:   authorID,
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("Failed to create answer: %v", err)
	}
	return a
}

// AddVotes casts up and down votes on answerID from fresh users.
func AddVotes(t *testing.T, db *gorm.DB, answerID string, up, down int) {
	t.Helper()
	cast := func(n int, vt models.VoteType) {
		for i := 0; i < n; i++ {
			u := CreateUser(t, db, fmt.Sprintf("voter-%s-%s-%d", answerID[:8], vt, i), models.RoleUser)
			v := models.Vote{UserID: u.ID, AnswerID: answerID, Type: vt}
			if err := db.Create(&v).Error; err != nil {
				t.Fatalf("Failed to create vote: %v", err)
			}
		}
	}
	cast(up, models.VoteUp)
	cast(down, models.VoteDown)
}

func SetAccepted(t *testing.T, db *gorm.DB, answerID string) {
	t.Helper()
	if err := db.Model(&models.Answer{}).Where("id = ?", answerID).UpdateColumn("is_accepted", true).Error; err != nil {
		t.Fatalf("Failed to accept answer: %v", err)
	}
}

// SetCreatedAt backdates a row so ordering tests do not depend on insert timing.
func SetCreatedAt(t *testing.T, db *gorm.DB, model interface{}, id string, at time.Time) {
	t.Helper()
	if err := db.Model(model).Where("id = ?", id).UpdateColumn("created_at", at).Error; err != nil {
		t.Fatalf("Failed to set created_at: %v", err)
	}
}
