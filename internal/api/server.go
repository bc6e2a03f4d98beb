package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"breakretest-go/internal/loader"
	"breakretest-go/internal/model"
	"breakretest-go/internal/service"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// Watchlist is the watchlist store the API manages
type Watchlist interface {
	service.WatchlistReader
	AddSymbol(ctx context.Context, userID int64, symbol string, timeframes []string) error
	RemoveSymbol(ctx context.Context, userID int64, symbol string) error
}

// Server exposes the scanner over HTTP
type Server struct {
	loader    *loader.Loader
	scanner   *service.ScannerService
	watchlist Watchlist
	router    *gin.Engine
	http      *http.Server
}

func NewServer(l *loader.Loader, scanner *service.ScannerService, watchlist Watchlist) *Server {
	s := &Server{
		loader:    l,
		scanner:   scanner,
		watchlist: watchlist,
	}
	s.router = s.setupRoutes()
	return s
}

// Router returns the gin engine
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	api := router.Group("/api/v1")
	api.Use(requireUser())
	{
		scanner := api.Group("/scanner")
		{
			scanner.GET("/status", s.getStatus)
			scanner.POST("/scan", s.runScan)
			scanner.GET("/results", s.getResults)
			scanner.DELETE("/results", s.clearResults)
			scanner.DELETE("/duplicates", s.clearDuplicates)

			scanner.POST("/auto/start", s.startAuto)
			scanner.POST("/auto/stop", s.stopAuto)
			scanner.GET("/auto/status", s.autoStatus)
			scanner.GET("/auto/new-signals", s.newSignals)
		}

		watchlist := api.Group("/watchlist")
		{
			watchlist.GET("", s.listWatchlist)
			watchlist.POST("", s.addWatchlist)
			watchlist.DELETE("/:symbol", s.removeWatchlist)
		}
	}

	return router
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 [API] Listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// requireUser reads the caller's user id from the X-User-ID header
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// scanResultResponse is the wire shape of a stored result
type scanResultResponse struct {
	ID              string            `json:"id"`
	Symbol          string            `json:"symbol"`
	Timeframe       string            `json:"timeframe"`
	PatternType     model.PatternType `json:"pattern_type"`
	LevelPrice      float64           `json:"level_price"`
	CurrentPrice    float64           `json:"current_price"`
	ConfidenceScore float64           `json:"confidence_score"`
	IsMatch         bool              `json:"is_match"`
	Message         string            `json:"message"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toResponses(results []model.ScanResult) []scanResultResponse {
	out := make([]scanResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, scanResultResponse{
			ID:              r.ID,
			Symbol:          r.Symbol,
			Timeframe:       r.Timeframe,
			PatternType:     r.PatternType,
			LevelPrice:      r.LevelPrice,
			CurrentPrice:    r.CurrentPrice,
			ConfidenceScore: r.ConfidenceScore,
			IsMatch:         r.IsMatch,
			Message:         r.Message,
			CreatedAt:       r.CreatedAt,
		})
	}
	return out
}
