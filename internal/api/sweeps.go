package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/littlecapa/finbox/internal/automation"
	"github.com/littlecapa/finbox/internal/llm"
	"github.com/littlecapa/finbox/internal/store"
)

// sweepMailbox runs one mailbox sweep synchronously. The request body may
// override the configured folders and save path; failures come back as a
// result with success=false, never as an HTTP error.
func (s *Server) sweepMailbox(c *gin.Context) {
	var req automation.MailboxRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	result := automation.RunMailboxSweep(c.Request.Context(), s.Config.Mailbox, req, s.Events)
	s.log().WithField("summary", result.Summary).Info("mailbox sweep finished")
	c.JSON(http.StatusOK, result)
}

// sweepChannel runs one channel sweep synchronously.
func (s *Server) sweepChannel(c *gin.Context) {
	var req automation.ChannelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	result := automation.RunChannelSweep(c.Request.Context(), s.Config.Graph, req, s.Events)
	s.log().WithField("summary", result.Summary).Info("channel sweep finished")
	c.JSON(http.StatusOK, result)
}

// ask relays one prompt to the model.
func (s *Server) ask(c *gin.Context) {
	if s.LLM == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "llm is not configured"})
		return
	}
	var req llm.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	resp, err := s.LLM.Query(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// --- saved mailbox configs ---

func (s *Server) listMailboxConfigs(c *gin.Context) {
	configs, err := s.Store.ListMailboxConfigs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (s *Server) createMailboxConfig(c *gin.Context) {
	var cfg store.MailboxConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cfg.User == "" || cfg.SourceFolder == "" || cfg.TargetFolder == "" || cfg.SavePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user, source_folder, target_folder and save_path are required"})
		return
	}
	if err := s.Store.CreateMailboxConfig(c.Request.Context(), &cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (s *Server) deleteMailboxConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.Store.DeleteMailboxConfig(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "mailbox config not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
