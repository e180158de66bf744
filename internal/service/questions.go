package service

import (
	"context"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type QuestionPage struct {
	Questions  []models.Question `json:"questions"`
	Pagination Pagination        `json:"pagination"`
}

type Questions struct {
	db *gorm.DB
}

func NewQuestions(db *gorm.DB) *Questions {
	return &Questions{db: db}
}

// orderColumns maps sortBy to a store-level ORDER BY expression.
// votes is absent: it is ranked in memory.
var orderColumns = map[string]string{
	SortByCreatedAt: "questions.created_at",
	SortByUpdatedAt: "questions.updated_at",
	SortByTitle:     "questions.title",
	SortByAnswers:   "(SELECT COUNT(*) FROM answers WHERE answers.question_id = questions.id)",
}

func applyFilters(db *gorm.DB, q ListQuery) *gorm.DB {
	if q.Search != "" {
		like := "%" + escapeLike(q.Search) + "%"
		db = db.Where("(questions.title ILIKE ? OR questions.description ILIKE ?)", like, like)
	}
	if len(q.Tags) > 0 {
		db = db.Where("questions.tags && ?", pq.Array(q.Tags))
	}
	switch q.Filter {
	case FilterAnswered:
		db = db.Where("EXISTS (SELECT 1 FROM answers WHERE answers.question_id = questions.id)")
	case FilterUnanswered:
		db = db.Where("NOT EXISTS (SELECT 1 FROM answers WHERE answers.question_id = questions.id)")
	case FilterAccepted:
		db = db.Where("EXISTS (SELECT 1 FROM answers WHERE answers.question_id = questions.id AND answers.is_accepted)")
	}
	return db
}

// List returns one page of questions matching q, each carrying totalVotes
// and hasAcceptedAnswer.
func (s *Questions) List(ctx context.Context, q ListQuery) (*QuestionPage, error) {
	db := s.db.WithContext(ctx)
	filtered := func() *gorm.DB { return applyFilters(db.Model(&models.Question{}), q) }

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, internal("Failed to fetch questions", err)
	}

	var (
		questions []models.Question
		err       error
	)
	if q.SortBy == SortByVotes {
		questions, err = s.pageByVotes(db, filtered(), q)
	} else {
		dir := " ASC"
		if q.Desc() {
			dir = " DESC"
		}
		err = filtered().
			Preload("Author", authorSummary).
			Order(orderColumns[q.SortBy] + dir).
			Order("questions.created_at DESC").
			Order("questions.id").
			Offset(q.Offset()).
			Limit(q.Limit).
			Find(&questions).Error
	}
	if err != nil {
		return nil, internal("Failed to fetch questions", err)
	}

	if err := decorateQuestions(db, questions); err != nil {
		return nil, internal("Failed to fetch questions", err)
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return &QuestionPage{
		Questions:  questions,
		Pagination: NewPagination(q.Page, q.Limit, total),
	}, nil
}

// pageByVotes ranks the whole filtered set by summed answer votes before
// cutting the page; the sum is derived, so the store cannot order by it.
func (s *Questions) pageByVotes(db, filtered *gorm.DB, q ListQuery) ([]models.Question, error) {
	var rows []voteRank
	if err := filtered.Select("questions.id", "questions.created_at").Scan(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	stats, err := questionStats(db, ids)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].TotalVotes = stats[rows[i].ID].TotalVotes
	}
	rankByVotes(rows, q.Desc())

	from, to := window(len(rows), q.Offset(), q.Limit)
	pageIDs := make([]string, 0, to-from)
	for _, r := range rows[from:to] {
		pageIDs = append(pageIDs, r.ID)
	}
	if len(pageIDs) == 0 {
		return nil, nil
	}

	var found []models.Question
	if err := db.Preload("Author", authorSummary).Where("id IN ?", pageIDs).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.Question, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}
	out := make([]models.Question, 0, len(pageIDs))
	for _, id := range pageIDs {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// stat is the per-question roll-up of its answers.
type stat struct {
	Answers     int64
	TotalVotes  int64
	HasAccepted bool
}

// questionStats sums each answer's vote aggregate per question.
// Questions without answers map to the zero stat.
func questionStats(db *gorm.DB, questionIDs []string) (map[string]stat, error) {
	out := make(map[string]stat, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}

	var answers []models.Answer
	err := db.Select("id", "question_id", "is_accepted").
		Where("question_id IN ?", questionIDs).
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(answers))
	for i, a := range answers {
		ids[i] = a.ID
	}
	counts, err := voteCounts(db, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		st := out[a.QuestionID]
		st.Answers++
		st.TotalVotes += counts[a.ID].Total
		st.HasAccepted = st.HasAccepted || a.IsAccepted
		out[a.QuestionID] = st
	}
	return out, nil
}

func commentCounts(db *gorm.DB, column string, ids []string) (map[string]int64, error) {
	out := map[string]int64{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ParentID string
		N        int64
	}
	err := db.Model(&models.Comment{}).
		Select(column+" AS parent_id, COUNT(*) AS n").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ParentID] = r.N
	}
	return out, nil
}

func decorateQuestions(db *gorm.DB, questions []models.Question) error {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	stats, err := questionStats(db, ids)
	if err != nil {
		return err
	}
	comments, err := commentCounts(db, "question_id", ids)
	if err != nil {
		return err
	}
	for i := range questions {
		st := stats[questions[i].ID]
		questions[i].AnswerCount = st.Answers
		questions[i].TotalVotes = st.TotalVotes
		questions[i].HasAcceptedAnswer = st.HasAccepted
		questions[i].CommentCount = comments[questions[i].ID]
	}
	return nil
}

// Get returns a question with its comments and its answers in display order.
// viewerID may be empty.
func (s *Questions) Get(ctx context.Context, id, viewerID string) (*models.Question, error) {
	db := s.db.WithContext(ctx)

	var q models.Question
	err := db.
		Preload("Author", func(db *gorm.DB) *gorm.DB { return db.Select("id", "username", "avatar", "bio") }).
		Preload("Answers.Author", authorSummary).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Author", authorSummary).
		Take(&q, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "Question not found", "Failed to fetch question")
	}

	if err := decorateAnswers(db, q.Answers, viewerID); err != nil {
		return nil, internal("Failed to fetch question", err)
	}
	questions := []models.Question{q}
	if err := decorateQuestions(db, questions); err != nil {
		return nil, internal("Failed to fetch question", err)
	}
	q = questions[0]
	if q.Answers == nil {
		q.Answers = []models.Answer{}
	}
	if q.Comments == nil {
		q.Comments = []models.Comment{}
	}
	return &q, nil
}

func (s *Questions) Create(ctx context.Context, caller auth.Identity, req models.CreateQuestionRequest) (*models.Question, error) {
	q := models.Question{
		Title:       req.Title,
		Description: req.Description,
		Tags:        pq.StringArray(req.Tags),
		AuthorID:    caller.UserID,
	}
	db := s.db.WithContext(ctx)
	if err := db.Create(&q).Error; err != nil {
		return nil, internal("Failed to create question", err)
	}
	return s.reload(db, q.ID, "Failed to create question")
}

// Update edits title, description and tags. Owner or admin only.
func (s *Questions) Update(ctx context.Context, caller auth.Identity, id string, req models.UpdateQuestionRequest) (*models.Question, error) {
	if req.Tags != nil && len(req.Tags) == 0 {
		return nil, apperr.Invalid("At least one tag is required")
	}
	db := s.db.WithContext(ctx)
	if err := s.authorize(db, caller, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(req.Tags)
	}
	if len(updates) > 0 {
		if err := db.Model(&models.Question{ID: id}).Updates(updates).Error; err != nil {
			return nil, internal("Failed to update question", err)
		}
	}
	return s.reload(db, id, "Failed to update question")
}

// Delete removes the question; answers, votes and comments cascade.
func (s *Questions) Delete(ctx context.Context, caller auth.Identity, id string) error {
	db := s.db.WithContext(ctx)
	if err := s.authorize(db, caller, id); err != nil {
		return err
	}
	res := db.Delete(&models.Question{}, "id = ?", id)
	if res.Error != nil {
		return internal("Failed to delete question", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Question not found")
	}
	return nil
}

func (s *Questions) authorize(db *gorm.DB, caller auth.Identity, id string) error {
	var q models.Question
	if err := db.Select("id", "author_id").Take(&q, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "Question not found", "Failed to load question")
	}
	if !auth.CanModify(caller, q.AuthorID) {
		return apperr.Forbidden("Access denied. Owner or admin privileges required.")
	}
	return nil
}

func (s *Questions) reload(db *gorm.DB, id, op string) (*models.Question, error) {
	var q models.Question
	if err := db.Preload("Author", authorSummary).Take(&q, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Question not found", op)
	}
	questions := []models.Question{q}
	if err := decorateQuestions(db, questions); err != nil {
		return nil, internal(op, err)
	}
	return &questions[0], nil
}

const popularTagLimit = 20

// PopularTags counts tag occurrences across all questions.
func (s *Questions) PopularTags(ctx context.Context) ([]models.TagCount, error) {
	var rows []models.TagCount
	err := s.db.WithContext(ctx).
		Raw(`SELECT tag, COUNT(*) AS count FROM questions, unnest(tags) AS tag
			GROUP BY tag ORDER BY count DESC, tag ASC LIMIT ?`, popularTagLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, internal("Failed to fetch popular tags", err)
	}
	if rows == nil {
		rows = []models.TagCount{}
	}
	return rows, nil
}
