package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dshills/reabridge/internal/extension"
	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/host/simhost"
	"github.com/dshills/reabridge/internal/observability"
)

// Action is an action as reported by GET /actions.
type Action struct {
	ID          uint32 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Toggleable  bool   `json:"toggleable"`
	KeyBinding  string `json:"key_binding,omitempty"`
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(observability.Handler()))

	s.engine.GET("/actions", s.listActions)
	s.engine.POST("/actions/:name/invoke", s.invokeAction)
	s.engine.GET("/actions/:name/toggle", s.toggleState)

	if s.extensions != nil {
		s.engine.GET("/extensions", s.listExtensions)
		s.engine.POST("/extensions/:name/reload", s.reloadExtension)
	}
}

func (s *Server) health(c *gin.Context) {
	var awake bool
	if err := s.onMain(c, func() { awake = s.reaper.IsAwake() }); err != nil {
		s.mainThreadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"uptime":        time.Since(s.started).String(),
		"host_version":  s.host.Version().String(),
		"audio_blocks":  s.host.Blocks(),
		"awake":         awake,
		"registrations": s.host.Registrations(),
	})
}

func (s *Server) listActions(c *gin.Context) {
	var actions []Action
	err := s.onMain(c, func() {
		for _, info := range s.reaper.Actions() {
			name, _ := s.host.CommandName(info.ID)
			actions = append(actions, Action{
				ID:          uint32(info.ID),
				Name:        name,
				Description: info.Description,
				Toggleable:  info.Toggleable,
				KeyBinding:  info.KeyBinding,
			})
		}
	})
	if err != nil {
		s.mainThreadError(c, err)
		return
	}
	if actions == nil {
		actions = []Action{}
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

func (s *Server) invokeAction(c *gin.Context) {
	name := c.Param("name")
	var invokeErr error
	if err := s.onMain(c, func() { invokeErr = s.host.Invoke(name) }); err != nil {
		s.mainThreadError(c, err)
		return
	}
	switch {
	case errors.Is(invokeErr, simhost.ErrUnknownCommand):
		c.JSON(http.StatusNotFound, gin.H{"error": invokeErr.Error()})
	case errors.Is(invokeErr, simhost.ErrNotHandled):
		c.JSON(http.StatusConflict, gin.H{"error": invokeErr.Error()})
	case invokeErr != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": invokeErr.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"invoked": name})
	}
}

func (s *Server) toggleState(c *gin.Context) {
	name := c.Param("name")
	var (
		state host.ToggleActionResult
		err   error
	)
	if callErr := s.onMain(c, func() { state, err = s.host.ToggleState(name) }); callErr != nil {
		s.mainThreadError(c, callErr)
		return
	}
	if errors.Is(err, simhost.ErrUnknownCommand) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "state": state.String()})
}

func (s *Server) listExtensions(c *gin.Context) {
	var list []extension.Status
	if err := s.onMain(c, func() { list = s.extensions.List() }); err != nil {
		s.mainThreadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"extensions": list})
}

func (s *Server) reloadExtension(c *gin.Context) {
	name := c.Param("name")
	var reloadErr error
	if err := s.onMain(c, func() { reloadErr = s.extensions.Reload(name) }); err != nil {
		s.mainThreadError(c, err)
		return
	}
	switch {
	case errors.Is(reloadErr, extension.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": reloadErr.Error()})
	case reloadErr != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": reloadErr.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"reloaded": name})
	}
}

func (s *Server) mainThreadError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, simhost.ErrStopped):
		status = http.StatusServiceUnavailable
	}
	s.logger.Warn("main thread call failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}
