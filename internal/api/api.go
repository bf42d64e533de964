// Package api exposes the HTTP surface: portfolio CRUD, the bookmark
// directory, the LLM pass-through and the sweep triggers.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/littlecapa/finbox/internal/auth"
	"github.com/littlecapa/finbox/internal/config"
	"github.com/littlecapa/finbox/internal/llm"
	"github.com/littlecapa/finbox/internal/store"
	"github.com/littlecapa/finbox/internal/sweep"
)

// Server bundles the handler dependencies.
type Server struct {
	Store    *store.Store
	LLM      *llm.Service
	Config   *config.Config
	Events   sweep.EventSink
	Verifier *auth.JWTVerifier
	Log      *logrus.Entry
}

// Router builds the gin engine. Reads are open; mutations and sweep
// triggers go through the JWT middleware (a no-op when no secret is
// configured).
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(requestID())

	api := r.Group("/api")

	api.GET("/stats", s.getStats)
	api.GET("/stocks", s.listStocks)
	api.GET("/stocks/:isin", s.getStock)
	api.GET("/holdings", s.listHoldings)
	api.GET("/alarms", s.listAlarms)
	api.GET("/recommendations", s.listRecommendations)
	api.GET("/directory", s.getDirectory)
	api.GET("/categories", s.listCategories)
	api.GET("/categories/:id/pages", s.listPages)
	api.GET("/mailbox-configs", s.listMailboxConfigs)

	protected := api.Group("")
	protected.Use(auth.Middleware(s.Verifier))

	protected.POST("/stocks", s.createStock)
	protected.PUT("/stocks/:isin", s.updateStock)
	protected.DELETE("/stocks/:isin", s.deleteStock)

	protected.POST("/holdings", s.createHolding)
	protected.PUT("/holdings/:id", s.updateHolding)
	protected.DELETE("/holdings/:id", s.deleteHolding)

	protected.POST("/alarms", s.createAlarm)
	protected.PUT("/alarms/:id", s.updateAlarm)
	protected.DELETE("/alarms/:id", s.deleteAlarm)

	protected.POST("/recommendations", s.createRecommendation)
	protected.PUT("/recommendations/:id", s.updateRecommendation)
	protected.DELETE("/recommendations/:id", s.deleteRecommendation)

	protected.POST("/categories", s.createCategory)
	protected.PUT("/categories/:id", s.updateCategory)
	protected.DELETE("/categories/:id", s.deleteCategory)
	protected.POST("/pages", s.createPage)
	protected.PUT("/pages/:id", s.updatePage)
	protected.DELETE("/pages/:id", s.deletePage)

	protected.POST("/mailbox-configs", s.createMailboxConfig)
	protected.DELETE("/mailbox-configs/:id", s.deleteMailboxConfig)

	protected.POST("/ask", s.ask)
	protected.POST("/sweeps/mailbox", s.sweepMailbox)
	protected.POST("/sweeps/channel", s.sweepChannel)

	return r
}

// requestID tags every response with an X-Request-ID, honoring one supplied
// by the caller.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) log() *logrus.Entry {
	if s.Log != nil {
		return s.Log
	}
	return logrus.WithField("component", "api")
}
