package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/testutil"
)

func TestComments(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	asker := testutil.CreateUser(t, db, "asker", models.RoleUser)
	helper := testutil.CreateUser(t, db, "helper", models.RoleUser)
	q := testutil.CreateQuestion(t, db, asker.ID, "Where do comments go?")
	a := testutil.CreateAnswer(t, db, q.ID, helper.ID)
	comments := NewComments(db)

	first, err := comments.Create(ctx, identity(helper), OnQuestion, q.ID, models.CreateCommentRequest{Content: "first"})
	require.NoError(t, err)
	require.NotNil(t, first.QuestionID)
	assert.Nil(t, first.AnswerID)
	require.NotNil(t, first.Author)
	assert.Equal(t, "helper", first.Author.Username)
	testutil.SetCreatedAt(t, db, &models.Comment{}, first.ID, time.Now().Add(-time.Minute).UTC())

	second, err := comments.Create(ctx, identity(asker), OnQuestion, q.ID, models.CreateCommentRequest{Content: "second"})
	require.NoError(t, err)

	onAnswer, err := comments.Create(ctx, identity(asker), OnAnswer, a.ID, models.CreateCommentRequest{Content: "on the answer"})
	require.NoError(t, err)
	require.NotNil(t, onAnswer.AnswerID)
	assert.Equal(t, a.ID, *onAnswer.AnswerID)

	list, err := comments.List(ctx, OnQuestion, q.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	list, err = comments.List(ctx, OnAnswer, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	page, err := NewQuestions(db).List(ctx, mustQuery(t, nil))
	require.NoError(t, err)
	require.Len(t, page.Questions, 1)
	assert.Equal(t, int64(2), page.Questions[0].CommentCount)

	_, err = comments.Create(ctx, identity(asker), OnAnswer, q.ID, models.CreateCommentRequest{Content: "wrong parent"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "Answer not found", apperr.Message(err))
}
