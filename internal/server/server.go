package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/azaliaz/bookverse/internal/config"
	"github.com/azaliaz/bookverse/internal/domain/models"
	"github.com/azaliaz/bookverse/internal/logger"
)

//go:generate mockgen -source=server.go -destination=./mocks/service_mock.go -package=mocks
type Storage interface {
	SaveUser(context.Context, models.User) (models.User, error)
	ValidUser(ctx context.Context, email, pass string) (models.User, error)
	GetUser(context.Context, string) (models.User, error)

	SaveBook(context.Context, models.Book) (models.Book, error)
	GetBooks(context.Context, models.BookFilter) ([]models.Book, error)
	GetBook(context.Context, string) (models.Book, error)
	UpdateBook(context.Context, models.Book) (models.Book, error)
	SetBookRating(context.Context, string, float64) error
	DeleteBook(context.Context, string) error

	SaveReview(context.Context, models.Review) (models.Review, error)
	GetReviews(context.Context, string) ([]models.Review, error)
	GetReview(context.Context, string) (models.Review, error)
	UpdateReview(context.Context, models.Review) (models.Review, error)
	DeleteReview(context.Context, string) error
	DeleteReviewsByBook(context.Context, string) (int64, error)

	Close(context.Context) error
}

type Server struct {
	serv        *http.Server
	valid       *validator.Validate
	Storage     Storage
	secret      []byte
	limiter     *RateLimiter
	corsOrigins []string
	now         func() time.Time
}

func New(cfg config.Config, stor Storage) *Server {
	server := http.Server{ //nolint:gosec // not today
		Addr:              cfg.Addr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	var limiter *RateLimiter
	if cfg.RateLimit > 0 {
		limiter = NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return &Server{
		serv:        &server,
		valid:       validator.New(),
		Storage:     stor,
		secret:      []byte(cfg.JWTSecret),
		limiter:     limiter,
		corsOrigins: cfg.CORSOrigins,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Router builds the gin engine with every route of the API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), metricsMiddleware())
	router.Use(cors.New(s.corsConfig()))

	router.GET("/healthz", func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(MetricsHandler()))

	api := router.Group("/api")
	auth := api.Group("/auth")
	{
		auth.POST("/register", s.rateLimit(), s.Register)
		auth.POST("/login", s.rateLimit(), s.Login)
		auth.GET("/me", s.JWTAuthMiddleware(), s.UserInfo)
	}
	books := api.Group("/books")
	{
		books.GET("", s.AllBooks)
		books.GET("/:id", s.BookInfo)
		books.POST("", s.JWTAuthMiddleware(), s.AddBook)
		books.PUT("/:id", s.JWTAuthMiddleware(), s.UpdateBook)
		books.DELETE("/:id", s.JWTAuthMiddleware(), s.RemoveBook)
		books.PATCH("/:id/progress", s.JWTAuthMiddleware(), s.UpdateProgress)
	}
	reviews := api.Group("/reviews")
	{
		reviews.GET("", s.AllReviews)
		reviews.POST("", s.JWTAuthMiddleware(), s.AddReview)
		reviews.PUT("/:id", s.JWTAuthMiddleware(), s.UpdateReview)
		reviews.DELETE("/:id", s.JWTAuthMiddleware(), s.RemoveReview)
	}
	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.corsOrigins) == 0 || slices.Contains(s.corsOrigins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = s.corsOrigins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) Run(ctx context.Context) error {
	log := logger.Get()
	s.serv.Handler = s.Router()
	if s.limiter != nil {
		go s.limiter.StartCleanup(ctx, time.Minute)
	}
	log.Info().Str("host", s.serv.Addr).Msg("server started")
	if err := s.serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) ShutdownServer(ctx context.Context) error {
	return s.serv.Shutdown(ctx)
}
