package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"breakretest-go/internal/config"
	"breakretest-go/internal/model"

	"github.com/gin-gonic/gin"
)

type manualScanRequest struct {
	Symbols     []string `json:"symbols"`
	Timeframes  []string `json:"timeframes"`
	Sensitivity string   `json:"sensitivity"`
}

type autoStartRequest struct {
	IntervalMinutes int `json:"interval_minutes"`
}

type watchlistRequest struct {
	Symbol     string   `json:"symbol" binding:"required"`
	Timeframes []string `json:"timeframes"`
}

// GET /api/v1/scanner/status
func (s *Server) getStatus(c *gin.Context) {
	status, err := s.scanner.UserStatus(c.Request.Context(), currentUser(c), s.watchlist)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	auto := s.loader.Status()
	status.IsRunning = auto.IsRunning
	status.ScanIntervalMinutes = auto.IntervalMinutes
	c.JSON(http.StatusOK, status)
}

// POST /api/v1/scanner/scan
func (s *Server) runScan(c *gin.Context) {
	var req manualScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if _, err := config.ParseSensitivity(req.Sensitivity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, _, err := s.loader.RunOnce(c.Request.Context(), currentUser(c), req.Symbols, req.Timeframes, req.Sensitivity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"signals_found": len(results),
		"results":       toResponses(results),
	})
}

// GET /api/v1/scanner/results?skip=0&limit=50&pattern_type=bullish_retest
func (s *Server) getResults(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skip must be a non-negative integer"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	pattern := model.PatternType(c.Query("pattern_type"))
	if pattern != "" && !pattern.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown pattern_type %q", pattern)})
		return
	}

	results, total, err := s.scanner.GetResults(c.Request.Context(), currentUser(c), pattern, skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": toResponses(results),
		"total":   total,
	})
}

// DELETE /api/v1/scanner/results?days=7 (days=0 deletes everything)
func (s *Server) clearResults(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 0 || days > 30 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 0 and 30"})
		return
	}

	deleted, err := s.scanner.ClearOldResults(c.Request.Context(), currentUser(c), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	message := fmt.Sprintf("Results older than %d days deleted", days)
	if days == 0 {
		message = "All results deleted"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted, "message": message})
}

// DELETE /api/v1/scanner/duplicates
func (s *Server) clearDuplicates(c *gin.Context) {
	deleted, err := s.scanner.PurgeDuplicates(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": deleted,
		"message": fmt.Sprintf("%d duplicate signals deleted", deleted),
	})
}

// POST /api/v1/scanner/auto/start
func (s *Server) startAuto(c *gin.Context) {
	req := autoStartRequest{IntervalMinutes: 5}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	interval := config.ClampInterval(req.IntervalMinutes)
	s.loader.Start(interval)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Automatic scanner started every %d minutes", s.loader.Status().IntervalMinutes),
	})
}

// POST /api/v1/scanner/auto/stop
func (s *Server) stopAuto(c *gin.Context) {
	s.loader.Stop()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Automatic scanner stopped"})
}

// GET /api/v1/scanner/auto/status
func (s *Server) autoStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.loader.Status())
}

// GET /api/v1/scanner/auto/new-signals
func (s *Server) newSignals(c *gin.Context) {
	signals := s.loader.TakeNewSignals(currentUser(c))
	c.JSON(http.StatusOK, gin.H{"signals": signals, "count": len(signals)})
}

// GET /api/v1/watchlist
func (s *Server) listWatchlist(c *gin.Context) {
	items, err := s.watchlist.ListActive(c.Request.Context(), currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []model.WatchlistItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// POST /api/v1/watchlist
func (s *Server) addWatchlist(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if err := s.watchlist.AddSymbol(c.Request.Context(), currentUser(c), symbol, req.Timeframes); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "symbol": symbol})
}

// DELETE /api/v1/watchlist/:symbol
func (s *Server) removeWatchlist(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if err := s.watchlist.RemoveSymbol(c.Request.Context(), currentUser(c), symbol); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "symbol": symbol})
}
