package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/handlers"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/service"
)

type Server struct {
	cfg     config.Config
	db      database.Service
	tokens  *auth.Tokens
	handler *handlers.Handler
}

func newServer(cfg config.Config, db database.Service) *Server {
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL())
	return &Server{
		cfg:     cfg,
		db:      db,
		tokens:  tokens,
		handler: handlers.NewHandler(db.GetDB(), tokens),
	}
}

// NewServer creates and configures a new server
func NewServer(cfg config.Config, db database.Service) *http.Server {
	s := newServer(cfg, db)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s\n", cfg.Port)
	fmt.Println("📝 Press Ctrl+C to stop the server")

	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.Metrics())

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	lookup := middleware.GormUserLookup(s.db.GetDB())
	authed := middleware.AuthMiddleware(s.tokens, lookup)
	optional := middleware.OptionalAuth(s.tokens, lookup)
	h := s.handler

	api := r.Group("/api")
	{
		// Auth routes
		api.POST("/register", h.Auth.Register)
		api.POST("/login", h.Auth.Login)
		api.GET("/me", authed, h.Auth.GetMe)

		// User routes
		api.GET("/users/:id", h.User.GetUserProfile)
		api.GET("/users/:id/questions", h.User.GetUserQuestions)
		api.GET("/users/:id/answers", h.User.GetUserAnswers)
		api.PUT("/users/:id/role", authed, middleware.RequireRole(models.RoleAdmin), h.User.UpdateUserRole)

		// Question routes
		api.GET("/questions", h.Question.ListQuestions)
		api.GET("/questions/tags/popular", h.Question.PopularTags)
		api.GET("/questions/:id", optional, h.Question.GetQuestion)
		api.POST("/questions", authed, h.Question.CreateQuestion)
		api.PUT("/questions/:id", authed, h.Question.UpdateQuestion)
		api.DELETE("/questions/:id", authed, h.Question.DeleteQuestion)
		api.GET("/questions/:id/answers", optional, h.Question.ListAnswers)
		api.POST("/questions/:id/answers", authed, h.Question.CreateAnswer)
		api.GET("/questions/:id/comments", h.Comment.GetComments(service.OnQuestion))
		api.POST("/questions/:id/comments", authed, h.Comment.CreateComment(service.OnQuestion))

		// Answer routes
		api.PUT("/answers/:id", authed, h.Answer.UpdateAnswer)
		api.DELETE("/answers/:id", authed, h.Answer.DeleteAnswer)
		api.GET("/answers/:id/votes", h.Answer.GetVotes)
		api.POST("/answers/:id/vote", authed, h.Answer.VoteAnswer)
		api.POST("/answers/:id/accept", authed, h.Answer.AcceptAnswer)
		api.GET("/answers/:id/comments", h.Comment.GetComments(service.OnAnswer))
		api.POST("/answers/:id/comments", authed, h.Comment.CreateComment(service.OnAnswer))
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	stats := s.db.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
