// Package web receives callbacks from the crawl backend. A finished job
// reports here, and the matching background task picks the results up.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/example/wildsearch/internal/tasks"
)

// StatsEnqueuer starts stat calculation over a finished export job.
type StatsEnqueuer interface {
	EnqueueCalculateStats(jobID string, chatID int64)
}

// Broadcaster runs the category diff and notifies subscribers.
type Broadcaster interface {
	Run(ctx context.Context) error
}

// Dispatcher moves callback work off the request handler.
type Dispatcher interface {
	Enqueue(t *tasks.Task)
}

// Server is the HTTP callback endpoint.
type Server struct {
	engine      *gin.Engine
	srv         *http.Server
	stats       StatsEnqueuer
	broadcaster Broadcaster
	queue       Dispatcher
	log         zerolog.Logger
}

// New creates the server and registers its routes.
func New(stats StatsEnqueuer, broadcaster Broadcaster, queue Dispatcher, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:      gin.New(),
		stats:       stats,
		broadcaster: broadcaster,
		queue:       queue,
		log:         log.With().Str("component", "web").Logger(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/callback/:type", s.handleCallback)
	return s
}

// Run starts listening. Blocks until the listener fails or Shutdown runs.
func (s *Server) Run(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener, letting in-flight requests finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCallback accepts job-finished notifications. Parameters arrive
// either as form fields or query parameters; the crawl backend forwards
// callback_params as a query string.
func (s *Server) handleCallback(c *gin.Context) {
	switch c.Param("type") {
	case "wb_category_export":
		jobID := param(c, "job_id")
		chatIDRaw := param(c, "chat_id")
		if jobID == "" || chatIDRaw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "job_id and chat_id are required"})
			return
		}
		chatID, err := strconv.ParseInt(chatIDRaw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id must be an integer"})
			return
		}

		s.log.Info().Str("job_id", jobID).Int64("chat_id", chatID).Msg("export job finished")
		s.stats.EnqueueCalculateStats(jobID, chatID)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})

	case "category_list":
		s.log.Info().Msg("category list job finished")
		s.queue.Enqueue(&tasks.Task{
			Name: "category_updates_broadcast",
			Run:  s.broadcaster.Run,
		})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})

	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown callback type"})
	}
}

func param(c *gin.Context, name string) string {
	if v := c.PostForm(name); v != "" {
		return v
	}
	return c.Query(name)
}
