package http

import (
	"net/http"
	"time"

	"signflow/internal/config"
	"signflow/internal/domain"
	"signflow/internal/infra/auth"
	"signflow/internal/infra/db"
	"signflow/internal/infra/ratelimit"
	"signflow/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticate(c *gin.Context) (domain.Principal, error)
}

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine
	log   *zap.Logger

	documents   *usecase.DocumentService
	signing     *usecase.SigningService
	corrections *usecase.CorrectionService
	certs       *usecase.CertificateService
	verifier    *usecase.ChecksumVerifier
	activity    *usecase.ActivityQuery

	authenticator Authenticator
	authorizer    domain.Authorizer
	adminAPIKey   string

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

type ServerDeps struct {
	Documents   *usecase.DocumentService
	Signing     *usecase.SigningService
	Corrections *usecase.CorrectionService
	Certs       *usecase.CertificateService
	Verifier    *usecase.ChecksumVerifier
	Activity    *usecase.ActivityQuery

	Authenticator Authenticator
	Authorizer    domain.Authorizer
	RateLimiter   domain.RateLimiter
	Log           *zap.Logger
}

func NewServer(cfg config.Config, store *db.Store, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:           cfg,
		store:         store,
		r:             r,
		log:           log,
		documents:     deps.Documents,
		signing:       deps.Signing,
		corrections:   deps.Corrections,
		certs:         deps.Certs,
		verifier:      deps.Verifier,
		activity:      deps.Activity,
		authenticator: deps.Authenticator,
		authorizer:    deps.Authorizer,
		adminAPIKey:   cfg.AdminAPIKey,
	}
	if s.authenticator == nil && cfg.AuthMode == "header" {
		s.authenticator = auth.NewHeaderAuthenticator()
	}
	if s.authorizer == nil {
		s.authorizer = auth.NewAuthorizer()
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisConfig{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			}); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		mode := "no-db"
		if s.store != nil && s.store.DB != nil {
			mode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": mode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/documents", s.handleCreateDocument)
		v1.GET("/documents/:id", s.handleGetDocument)
		v1.PUT("/documents/:id/fields", s.handleReplaceFields)
		v1.POST("/documents/:id/send", s.handleSendDocument)
		v1.POST("/documents/:id/remind", s.handleRemind)
		v1.POST("/documents/:id/void", s.handleVoidDocument)
		v1.POST("/documents/:id/correct", s.handleCorrectDocument)
		v1.POST("/documents/:id/expire", s.handleExpireDocument)
		v1.DELETE("/documents/:id", s.handleDeleteDocument)
		v1.GET("/documents/:id/certificate", s.handleGetCertificate)
		v1.GET("/documents/:id/download", s.handleDownloadDocument)
		v1.GET("/documents/:id/activity", s.handleDocumentActivity)
		v1.GET("/activity", s.handleTeamActivity)

		v1.GET("/sign/:token", s.handleViewSigning)
		v1.POST("/sign/:token", s.handleSubmitSignature)
		v1.POST("/sign/:token/decline", s.handleDeclineSigning)

		v1.GET("/verify/certificate/:id", s.handleVerifyCertificate)
		v1.GET("/verify/signature/:token", s.handleVerifySignature)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Handler() http.Handler { return s.r }

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}
