package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type AnswerPage struct {
	Answers    []models.UserAnswer `json:"answers"`
	Pagination Pagination          `json:"pagination"`
}

type Users struct {
	db     *gorm.DB
	tokens *auth.Tokens
}

func NewUsers(db *gorm.DB, tokens *auth.Tokens) *Users {
	return &Users{db: db, tokens: tokens}
}

func (s *Users) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	db := s.db.WithContext(ctx)

	var n int64
	err := db.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&n).Error
	if err != nil {
		return nil, internal("Failed to create user", err)
	}
	if n > 0 {
		return nil, apperr.Invalid("Username or email already exists")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, internal("Failed to hash password", err)
	}
	u := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hash,
		Avatar:   req.Avatar,
		Role:     models.RoleUser,
	}
	if err := db.Create(&u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperr.Invalid("Username or email already exists")
		}
		return nil, internal("Failed to create user", err)
	}
	return s.respond("User registered successfully", u)
}

func (s *Users) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var u models.User
	err := s.db.WithContext(ctx).Take(&u, "email = ?", req.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	if err != nil {
		return nil, internal("Failed to log in", err)
	}
	if !auth.CheckPassword(u.Password, req.Password) {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	return s.respond("Login successful", u)
}

func (s *Users) respond(msg string, u models.User) (*models.AuthResponse, error) {
	tok, err := s.tokens.Issue(u)
	if err != nil {
		return nil, internal("Failed to generate token", err)
	}
	return &models.AuthResponse{Message: msg, Token: tok, User: u}, nil
}

func (s *Users) Me(ctx context.Context, caller auth.Identity) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Take(&u, "id = ?", caller.UserID).Error; err != nil {
		return nil, notFoundOr(err, "User not found", "Failed to fetch user")
	}
	return &u, nil
}

// Profile is the public view of a user, without email or role.
func (s *Users) Profile(ctx context.Context, id string) (*models.UserProfile, error) {
	db := s.db.WithContext(ctx)

	var p models.UserProfile
	if err := db.Select("id", "username", "avatar", "bio", "created_at").Take(&p.User, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "User not found", "Failed to fetch user")
	}
	if err := db.Model(&models.Question{}).Where("author_id = ?", id).Count(&p.QuestionCount).Error; err != nil {
		return nil, internal("Failed to fetch user", err)
	}
	if err := db.Model(&models.Answer{}).Where("author_id = ?", id).Count(&p.AnswerCount).Error; err != nil {
		return nil, internal("Failed to fetch user", err)
	}
	return &p, nil
}

// SetRole changes another user's role. Admin only; admins cannot change their own.
func (s *Users) SetRole(ctx context.Context, caller auth.Identity, id string, role models.Role) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Forbidden("Access denied. Admin privileges required.")
	}
	if caller.UserID == id {
		return nil, apperr.Invalid("Cannot change your own role")
	}
	if !role.Valid() {
		return nil, apperr.Invalid("Invalid role")
	}

	db := s.db.WithContext(ctx)
	res := db.Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return nil, internal("Failed to update user role", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("User not found")
	}
	var u models.User
	if err := db.Take(&u, "id = ?", id).Error; err != nil {
		return nil, internal("Failed to update user role", err)
	}
	return &u, nil
}

func (s *Users) requireUser(db *gorm.DB, id, op string) error {
	var u models.User
	if err := db.Select("id").Take(&u, "id = ?", id).Error; err != nil {
		return notFoundOr(err, "User not found", op)
	}
	return nil
}

// Questions pages through a user's questions, newest first.
func (s *Users) Questions(ctx context.Context, id string, p PageQuery) (*QuestionPage, error) {
	const op = "Failed to fetch user questions"
	db := s.db.WithContext(ctx)
	if err := s.requireUser(db, id, op); err != nil {
		return nil, err
	}

	var total int64
	if err := db.Model(&models.Question{}).Where("author_id = ?", id).Count(&total).Error; err != nil {
		return nil, internal(op, err)
	}
	questions := []models.Question{}
	err := db.Where("author_id = ?", id).
		Order("created_at DESC").
		Order("id").
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(&questions).Error
	if err != nil {
		return nil, internal(op, err)
	}
	if err := decorateQuestions(db, questions); err != nil {
		return nil, internal(op, err)
	}
	return &QuestionPage{Questions: questions, Pagination: NewPagination(p.Page, p.Limit, total)}, nil
}

// Answers pages through a user's answers, newest first, each with its question's title.
func (s *Users) Answers(ctx context.Context, id string, p PageQuery) (*AnswerPage, error) {
	const op = "Failed to fetch user answers"
	db := s.db.WithContext(ctx)
	if err := s.requireUser(db, id, op); err != nil {
		return nil, err
	}

	var total int64
	if err := db.Model(&models.Answer{}).Where("author_id = ?", id).Count(&total).Error; err != nil {
		return nil, internal(op, err)
	}
	var answers []models.Answer
	err := db.Where("author_id = ?", id).
		Order("created_at DESC").
		Order("id").
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(&answers).Error
	if err != nil {
		return nil, internal(op, err)
	}

	answerIDs := make([]string, len(answers))
	questionIDs := make([]string, len(answers))
	for i, a := range answers {
		answerIDs[i] = a.ID
		questionIDs[i] = a.QuestionID
	}
	counts, err := voteCounts(db, answerIDs)
	if err != nil {
		return nil, internal(op, err)
	}
	comments, err := commentCounts(db, "answer_id", answerIDs)
	if err != nil {
		return nil, internal(op, err)
	}
	var refs []models.QuestionRef
	if len(questionIDs) > 0 {
		err = db.Model(&models.Question{}).Select("id", "title").Where("id IN ?", questionIDs).Scan(&refs).Error
		if err != nil {
			return nil, internal(op, err)
		}
	}
	byID := make(map[string]models.QuestionRef, len(refs))
	for _, r := range refs {
		byID[r.ID] = r
	}

	out := make([]models.UserAnswer, len(answers))
	for i, a := range answers {
		a.VoteCount = counts[a.ID]
		a.CommentCount = comments[a.ID]
		out[i] = models.UserAnswer{Answer: a, Question: byID[a.QuestionID]}
	}
	return &AnswerPage{Answers: out, Pagination: NewPagination(p.Page, p.Limit, total)}, nil
}
