package server

import (
	"context"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"holidaydeals/models"
	"holidaydeals/scraper"
)

// Store is the storage surface the HTTP API needs. Both SQLiteStore and
// PostgresStore satisfy it.
type Store interface {
	ListDeals(ctx context.Context, f models.DealFilter) ([]models.Deal, error)
	GetDeal(ctx context.Context, id int64) (*models.Deal, error)
	FindDealByURL(ctx context.Context, url string) (*models.Deal, error)
	InsertDeal(ctx context.Context, c *models.DealCandidate, providerID, runID int64) (*models.Deal, error)
	DeleteDeal(ctx context.Context, id int64) error
	ListRuns(ctx context.Context, limit int) ([]models.ScrapeRun, error)
	GetRun(ctx context.Context, id int64) (*models.ScrapeRun, error)
	CreateHotel(ctx context.Context, h *models.Hotel) (*models.Hotel, error)
	GetHotel(ctx context.Context, id int64) (*models.Hotel, error)
	ListHotels(ctx context.Context, destination string) ([]models.Hotel, error)
	UpdateHotel(ctx context.Context, h *models.Hotel) (*models.Hotel, error)
	DeleteHotel(ctx context.Context, id int64) error
}

// Batcher runs a scrape batch. Satisfied by scraper.Orchestrator.
type Batcher interface {
	ScrapeBatch(ctx context.Context, urls []string) (*models.BatchResult, error)
}

type Server struct {
	store      Store
	batcher    Batcher
	providerID int64
	engine     *gin.Engine

	// one batch at a time; the browser is a shared serial resource
	scraping atomic.Bool
}

func New(store Store, batcher Batcher, providerID int64) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:      store,
		batcher:    batcher,
		providerID: providerID,
		engine:     gin.New(),
	}

	s.engine.Use(gin.Recovery(), requestID(), requestLogger())
	s.routes()

	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")

	api.POST("/scrape", s.handleScrape)
	api.GET("/scrape/runs", s.handleListRuns)
	api.GET("/scrape/runs/:id", s.handleGetRun)

	api.GET("/deals", s.handleListDeals)
	api.GET("/deals/:id", s.handleGetDeal)
	api.DELETE("/deals/:id", s.handleDeleteDeal)
	api.POST("/deals/manual", s.handleCreateManualDeal)

	api.GET("/hotels", s.handleListHotels)
	api.POST("/hotels", s.handleCreateHotel)
	api.GET("/hotels/:id", s.handleGetHotel)
	api.PUT("/hotels/:id", s.handleUpdateHotel)
	api.DELETE("/hotels/:id", s.handleDeleteHotel)

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Run blocks serving HTTP until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}

var _ Batcher = (*scraper.Orchestrator)(nil)
