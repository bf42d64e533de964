package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/littlecapa/finbox/internal/store"
)

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.Store.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- stocks ---

func (s *Server) listStocks(c *gin.Context) {
	stocks, err := s.Store.ListStocks(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stocks)
}

func (s *Server) getStock(c *gin.Context) {
	st, err := s.Store.GetStock(c.Request.Context(), c.Param("isin"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "stock not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) createStock(c *gin.Context) {
	var st store.Stock
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if st.ISIN == "" || st.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isin and name are required"})
		return
	}
	if err := s.Store.CreateStock(c.Request.Context(), &st); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) updateStock(c *gin.Context) {
	var st store.Stock
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st.ISIN = c.Param("isin")
	if err := s.Store.UpdateStock(c.Request.Context(), &st); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "stock not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) deleteStock(c *gin.Context) {
	if err := s.Store.DeleteStock(c.Request.Context(), c.Param("isin")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "stock not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- holdings ---

func (s *Server) listHoldings(c *gin.Context) {
	holdings, err := s.Store.ListHoldings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, holdings)
}

func (s *Server) createHolding(c *gin.Context) {
	var h store.Holding
	if err := c.ShouldBindJSON(&h); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.ISIN == "" || h.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isin and a positive quantity are required"})
		return
	}
	if err := s.Store.CreateHolding(c.Request.Context(), &h); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, h)
}

func (s *Server) updateHolding(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var h store.Holding
	if err := c.ShouldBindJSON(&h); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.ID = id
	if err := s.Store.UpdateHolding(c.Request.Context(), &h); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "holding not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) deleteHolding(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.Store.DeleteHolding(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "holding not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- alarms ---

func (s *Server) listAlarms(c *gin.Context) {
	alarms, err := s.Store.ListAlarms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, alarms)
}

func (s *Server) createAlarm(c *gin.Context) {
	var a store.Alarm
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if a.ISIN == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isin is required"})
		return
	}
	if err := s.Store.CreateAlarm(c.Request.Context(), &a); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) updateAlarm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var a store.Alarm
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.ID = id
	if err := s.Store.UpdateAlarm(c.Request.Context(), &a); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alarm not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) deleteAlarm(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.Store.DeleteAlarm(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alarm not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- recommendations ---

func (s *Server) listRecommendations(c *gin.Context) {
	recs, err := s.Store.ListRecommendations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) createRecommendation(c *gin.Context) {
	var r store.Recommendation
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if r.ISIN == "" || r.Source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isin and source are required"})
		return
	}
	if err := s.Store.CreateRecommendation(c.Request.Context(), &r); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) updateRecommendation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var r store.Recommendation
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r.ID = id
	if err := s.Store.UpdateRecommendation(c.Request.Context(), &r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) deleteRecommendation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.Store.DeleteRecommendation(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// pathID parses the :id path parameter, answering 400 itself on garbage.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
