package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/testutil"
)

func newUsers(t *testing.T) (*Users, *auth.Tokens) {
	tokens := auth.NewTokens("test-secret", time.Hour)
	return NewUsers(testutil.DB(t), tokens), tokens
}

func TestRegisterAndLogin(t *testing.T) {
	users, tokens := newUsers(t)
	ctx := context.Background()

	res, err := users.Register(ctx, models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", res.Message)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.NotEqual(t, "secret1", res.User.Password)

	claims, err := tokens.Parse(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = users.Register(ctx, models.RegisterRequest{Username: "alice", Email: "other@example.com", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	res, err = users.Login(ctx, models.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Login successful", res.Message)

	for _, req := range []models.LoginRequest{
		{Email: "alice@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "secret1"},
	} {
		_, err = users.Login(ctx, req)
		assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
		assert.Equal(t, "Invalid credentials", apperr.Message(err))
	}
}

func TestProfileCounts(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	asker := testutil.CreateUser(t, db, "asker", models.RoleUser)
	helper := testutil.CreateUser(t, db, "helper", models.RoleUser)
	q1 := testutil.CreateQuestion(t, db, asker.ID, "First question by asker")
	testutil.CreateQuestion(t, db, asker.ID, "Second question by asker")
	testutil.CreateAnswer(t, db, q1.ID, helper.ID)

	p, err := NewUsers(db, auth.NewTokens("s", time.Hour)).Profile(ctx, asker.ID)
	require.NoError(t, err)
	assert.Equal(t, "asker", p.Username)
	assert.Empty(t, p.Email)
	assert.Empty(t, p.Role)
	assert.Equal(t, int64(2), p.QuestionCount)
	assert.Zero(t, p.AnswerCount)
}

func TestSetRole(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	moderator := testutil.CreateUser(t, db, "moderator", models.RoleModerator)
	user := testutil.CreateUser(t, db, "user", models.RoleUser)
	users := NewUsers(db, auth.NewTokens("s", time.Hour))

	_, err := users.SetRole(ctx, identity(moderator), user.ID, models.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = users.SetRole(ctx, identity(admin), admin.ID, models.RoleUser)
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	_, err = users.SetRole(ctx, identity(admin), user.ID, models.Role("ROOT"))
	assert.True(t, apperr.Is(err, apperr.KindInvalidArgument))

	_, err = users.SetRole(ctx, identity(admin), "00000000-0000-0000-0000-000000000000", models.RoleUser)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := users.SetRole(ctx, identity(admin), user.ID, models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, got.Role)
}

func TestUserQuestionsAndAnswers(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	asker := testutil.CreateUser(t, db, "asker", models.RoleUser)
	helper := testutil.CreateUser(t, db, "helper", models.RoleUser)
	t0 := time.Now().Add(-time.Hour).UTC()

	var qs []models.Question
	for i, title := range []string{"Oldest question by asker", "Middle question by asker", "Newest question by asker"} {
		q := testutil.CreateQuestion(t, db, asker.ID, title)
		testutil.SetCreatedAt(t, db, &models.Question{}, q.ID, t0.Add(time.Duration(i)*time.Minute))
		qs = append(qs, q)
	}
	older := testutil.CreateAnswer(t, db, qs[0].ID, helper.ID)
	newer := testutil.CreateAnswer(t, db, qs[2].ID, helper.ID)
	testutil.SetCreatedAt(t, db, &models.Answer{}, older.ID, t0)
	testutil.SetCreatedAt(t, db, &models.Answer{}, newer.ID, t0.Add(time.Minute))
	testutil.AddVotes(t, db, newer.ID, 2, 1)

	users := NewUsers(db, auth.NewTokens("s", time.Hour))

	page, err := users.Questions(ctx, asker.ID, PageQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Questions, 2)
	assert.Equal(t, qs[2].ID, page.Questions[0].ID)
	assert.Equal(t, qs[1].ID, page.Questions[1].ID)
	assert.Equal(t, int64(1), page.Questions[0].AnswerCount)
	assert.Equal(t, Pagination{Page: 1, Limit: 2, TotalCount: 3, TotalPages: 2, HasNext: true}, page.Pagination)

	page, err = users.Questions(ctx, helper.ID, PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, page.Questions)
	assert.Empty(t, page.Questions)

	answers, err := users.Answers(ctx, helper.ID, PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, answers.Answers, 2)
	assert.Equal(t, newer.ID, answers.Answers[0].ID)
	assert.Equal(t, models.QuestionRef{ID: qs[2].ID, Title: qs[2].Title}, answers.Answers[0].Question)
	assert.Equal(t, int64(1), answers.Answers[0].VoteCount.Total)
	assert.Equal(t, older.ID, answers.Answers[1].ID)
	assert.Equal(t, int64(2), answers.Pagination.TotalCount)

	unknown := "00000000-0000-0000-0000-000000000000"
	_, err = users.Questions(ctx, unknown, PageQuery{Page: 1, Limit: 10})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = users.Answers(ctx, unknown, PageQuery{Page: 1, Limit: 10})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "User not found", apperr.Message(err))
}
