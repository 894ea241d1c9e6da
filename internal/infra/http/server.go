package http

import (
	"net/http"
	"time"

	"bazaar/internal/config"
	"bazaar/internal/domain"
	"bazaar/internal/infra/cachemem"
	"bazaar/internal/infra/db"
	"bazaar/internal/infra/memstore"
	"bazaar/internal/infra/payment"
	"bazaar/internal/infra/ratelimit"
	"bazaar/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	generateUC *usecase.GenerateListingProofs
	verifyUC   *usecase.VerifyListing
	txSvc      *usecase.TransactionService

	listings usecase.ListingRepository
	proofs   usecase.ProofRepository

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Generate     *usecase.GenerateListingProofs
	Verify       *usecase.VerifyListing
	Transactions *usecase.TransactionService
	Listings     usecase.ListingRepository
	Proofs       usecase.ProofRepository
	RateLimiter  domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:        cfg,
		r:          r,
		generateUC: deps.Generate,
		verifyUC:   deps.Verify,
		txSvc:      deps.Transactions,
		listings:   deps.Listings,
		proofs:     deps.Proofs,
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	var (
		listings usecase.ListingRepository
		proofs   usecase.ProofRepository
		txs      usecase.TransactionRepository
	)
	if s.store != nil && s.store.DB != nil {
		listings = db.NewListingRepository(s.store.DB)
		proofs = db.NewProofRepository(s.store.DB)
		txs = db.NewTransactionRepository(s.store.DB)
	} else {
		mem := memstore.New()
		listings = mem.Listings()
		proofs = mem.Proofs()
		txs = mem.Transactions()
	}

	s.listings = listings
	s.proofs = proofs
	s.generateUC = &usecase.GenerateListingProofs{Listings: listings}
	s.verifyUC = &usecase.VerifyListing{
		Proofs:   proofs,
		Cache:    cachemem.New(),
		CacheTTL: s.cfg.VerifyCacheTTL(),
	}
	s.txSvc = &usecase.TransactionService{
		Listings:     listings,
		Proofs:       proofs,
		Transactions: txs,
		Payments:     payment.FromMode(s.cfg.PaymentMode),
	}

	s.initRateLimit(nil)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
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
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	s.r.POST("/listings", s.handleCreateListing)
	s.r.GET("/listings/:listing_id", s.handleGetListing)

	zkp := s.r.Group("/zkp")
	{
		zkp.POST("/:listing_id/verify", s.handleVerifyListing)
		zkp.GET("/:listing_id/bloom-check", s.handleBloomCheck)
		zkp.GET("/:listing_id/proofs", s.handleListProofs)
	}

	s.r.GET("/transactions", s.handleListTransactions)
	s.r.GET("/transactions/:transaction_id", s.handleGetTransaction)

	// POST /transactions/initiate shares its first segment with the
	// per-transaction action routes. All transaction POSTs dispatch from
	// NoRoute so the static path never competes with the id subtree.
	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router, mainly for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.r
}
