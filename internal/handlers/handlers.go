package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/service"
)

type QuestionService interface {
	List(ctx context.Context, q service.ListQuery) (*service.QuestionPage, error)
	Get(ctx context.Context, id, viewerID string) (*models.Question, error)
	Create(ctx context.Context, caller auth.Identity, req models.CreateQuestionRequest) (*models.Question, error)
	Update(ctx context.Context, caller auth.Identity, id string, req models.UpdateQuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, caller auth.Identity, id string) error
	PopularTags(ctx context.Context) ([]models.TagCount, error)
}

type AnswerService interface {
	ListForQuestion(ctx context.Context, questionID, viewerID string) ([]models.Answer, error)
	Create(ctx context.Context, caller auth.Identity, questionID string, req models.AnswerRequest) (*models.Answer, error)
	Update(ctx context.Context, caller auth.Identity, id string, req models.AnswerRequest) (*models.Answer, error)
	Delete(ctx context.Context, caller auth.Identity, id string) error
}

type VoteService interface {
	Cast(ctx context.Context, caller auth.Identity, answerID, voteType string) (*models.VoteResponse, error)
	Count(ctx context.Context, answerID string) (models.VoteCount, error)
}

type AcceptanceService interface {
	Accept(ctx context.Context, caller auth.Identity, answerID string) (*models.Answer, error)
}

type CommentService interface {
	List(ctx context.Context, p service.CommentParent, parentID string) ([]models.Comment, error)
	Create(ctx context.Context, caller auth.Identity, p service.CommentParent, parentID string, req models.CreateCommentRequest) (*models.Comment, error)
}

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Me(ctx context.Context, caller auth.Identity) (*models.User, error)
	Profile(ctx context.Context, id string) (*models.UserProfile, error)
	SetRole(ctx context.Context, caller auth.Identity, id string, role models.Role) (*models.User, error)
	Questions(ctx context.Context, id string, p service.PageQuery) (*service.QuestionPage, error)
	Answers(ctx context.Context, id string, p service.PageQuery) (*service.AnswerPage, error)
}

// Handler combines all handler types
type Handler struct {
	Auth     *AuthHandler
	Question *QuestionHandler
	Answer   *AnswerHandler
	Comment  *CommentHandler
	User     *UserHandler
}

// NewHandler wires every handler to the gorm-backed services.
func NewHandler(db *gorm.DB, tokens *auth.Tokens) *Handler {
	users := service.NewUsers(db, tokens)
	answers := service.NewAnswers(db)
	return &Handler{
		Auth:     NewAuthHandler(users),
		Question: NewQuestionHandler(service.NewQuestions(db), answers),
		Answer:   NewAnswerHandler(answers, service.NewVotes(db), service.NewAcceptance(db)),
		Comment:  NewCommentHandler(service.NewComments(db)),
		User:     NewUserHandler(users),
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
}

// bind decodes the JSON body into v and writes a 400 on failure.
func bind(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return false
	}
	return true
}

// fieldMessages holds the client-facing text for known rules, keyed by
// "<Struct>.<Field>.<tag>".
var fieldMessages = func() map[string]string {
	m := map[string]string{
		"AnswerRequest.Content.required": "Answer content is required",
		"AnswerRequest.Content.min":      "Answer content must be at least 20 characters long",
		"AnswerRequest.Content.max":      "Answer content must not exceed 10000 characters",
	}
	for _, req := range []string{"CreateQuestionRequest", "UpdateQuestionRequest"} {
		m[req+".Title.required"] = "Title is required"
		m[req+".Title.min"] = "Title must be at least 10 characters long"
		m[req+".Title.max"] = "Title must not exceed 200 characters"
		m[req+".Description.required"] = "Description is required"
		m[req+".Description.min"] = "Description must be at least 20 characters long"
		m[req+".Description.max"] = "Description must not exceed 10000 characters"
		m[req+".Tags.required"] = "Tags are required"
		m[req+".Tags.min"] = "At least one tag is required"
		m[req+".Tags.max"] = "Maximum 10 tags allowed"
	}
	return m
}()

// validationMessage renders the first failed rule the way API clients expect.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	if msg, ok := fieldMessages[fe.StructNamespace()+"."+fe.Tag()]; ok {
		return msg
	}
	field := fe.Field()
	if field != "" {
		field = strings.ToLower(field[:1]) + field[1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%q must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%q length must be at least %s characters long", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%q must contain less than or equal to %s items", field, fe.Param())
		}
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", field, fe.Param())
	case "email":
		return fmt.Sprintf("%q must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%q is invalid", field)
	}
}

// caller returns the identity set by the auth middleware, or writes a 401.
func caller(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied. No token provided."})
		return auth.Identity{}, false
	}
	return id, true
}

// viewerID is the optional caller, empty for anonymous requests.
func viewerID(c *gin.Context) string {
	id, _ := middleware.Identity(c)
	return id.UserID
}
