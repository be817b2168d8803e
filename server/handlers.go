package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"holidaydeals/models"
	"holidaydeals/scraper"
	"holidaydeals/storage"
)

type scrapeRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

func (s *Server) handleScrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must contain a urls array"})
		return
	}
	if len(req.URLs) < scraper.MinBatchURLs || len(req.URLs) > scraper.MaxBatchURLs {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "urls must contain between 1 and 50 entries",
		})
		return
	}

	if !s.scraping.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a scrape batch is already running"})
		return
	}
	defer s.scraping.Store(false)

	result, err := s.batcher.ScrapeBatch(c.Request.Context(), req.URLs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []models.ScrapeRun{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := s.store.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleListDeals(c *gin.Context) {
	var filter models.DealFilter
	filter.Destination = c.Query("destination")
	filter.Country = c.Query("country")
	filter.BoardBasis = c.Query("board_basis")
	filter.DepartureAirport = c.Query("departure_airport")
	filter.Sort = c.Query("sort")
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	if v := c.Query("max_price"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &p
		}
	}
	if v := c.Query("min_rating"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinRating = &r
		}
	}

	deals, err := s.store.ListDeals(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if deals == nil {
		deals = []models.Deal{}
	}
	c.JSON(http.StatusOK, gin.H{"deals": deals, "count": len(deals)})
}

func (s *Server) handleGetDeal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	deal, err := s.store.GetDeal(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if deal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
		return
	}
	c.JSON(http.StatusOK, deal)
}

func (s *Server) handleDeleteDeal(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	if err := s.store.DeleteDeal(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "deal not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// handleCreateManualDeal stores a hand-entered deal. It goes through the
// same validation and normalization as scraped candidates but has no
// scrape run attached.
func (s *Server) handleCreateManualDeal(c *gin.Context) {
	var candidate models.DealCandidate
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal payload"})
		return
	}

	if err := scraper.Validate(&candidate); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if candidate.URL == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "url is required"})
		return
	}
	if candidate.Destination == "" {
		candidate.Destination = "Unknown"
	}

	existing, err := s.store.FindDealByURL(c.Request.Context(), candidate.URL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a deal with this url already exists", "id": existing.ID})
		return
	}

	deal, err := s.store.InsertDeal(c.Request.Context(), &candidate, s.providerID, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, deal)
}

func (s *Server) handleListHotels(c *gin.Context) {
	hotels, err := s.store.ListHotels(c.Request.Context(), c.Query("destination"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if hotels == nil {
		hotels = []models.Hotel{}
	}
	c.JSON(http.StatusOK, gin.H{"hotels": hotels})
}

func (s *Server) handleCreateHotel(c *gin.Context) {
	var hotel models.Hotel
	if err := c.ShouldBindJSON(&hotel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hotel payload"})
		return
	}
	if hotel.Name == "" || hotel.Destination == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "name and destination are required"})
		return
	}

	created, err := s.store.CreateHotel(c.Request.Context(), &hotel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleGetHotel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hotel id"})
		return
	}

	hotel, err := s.store.GetHotel(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if hotel == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "hotel not found"})
		return
	}
	c.JSON(http.StatusOK, hotel)
}

func (s *Server) handleUpdateHotel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hotel id"})
		return
	}

	existing, err := s.store.GetHotel(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "hotel not found"})
		return
	}

	var hotel models.Hotel
	if err := c.ShouldBindJSON(&hotel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hotel payload"})
		return
	}
	hotel.ID = id

	updated, err := s.store.UpdateHotel(c.Request.Context(), &hotel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteHotel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hotel id"})
		return
	}

	if err := s.store.DeleteHotel(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "hotel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
