package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlship/mlship/internal/forest"
)

// Model is the narrow contract the HTTP API requires from the model layer.
type Model interface {
	Ready() bool
	Predict(features []float64) (class int, probability float64, err error)
	Info() (forest.Info, error)
	Retrain() error
}

// Server exposes the model over HTTP: health, predict, model info and
// retrain.
type Server struct {
	addr      string
	model     Model
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new model API server.
func NewServer(addr string, model Model) *Server {
	if addr == "" {
		addr = "0.0.0.0:5000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		model:  model,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	s.routes(r)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
	r.POST("/predict", s.handlePredict)
	r.GET("/model/info", s.handleModelInfo)
	r.POST("/retrain", s.handleRetrain)
}

func (s *Server) handleHealth(c *gin.Context) {
	if !s.model.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"message": "model is not loaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "model service is running",
		"uptime":  time.Since(s.startTime).String(),
	})
}

func (s *Server) handlePredict(c *gin.Context) {
	var req struct {
		Features []float64 `json:"features" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing features field"})
		return
	}

	class, prob, err := s.model.Predict(req.Features)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prediction":  class,
		"probability": prob,
		"features":    req.Features,
	})
}

func (s *Server) handleModelInfo(c *gin.Context) {
	info, err := s.model.Info()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleRetrain(c *gin.Context) {
	if err := s.model.Retrain(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	info, err := s.model.Info()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "model retrained",
		"accuracy": info.Accuracy,
	})
}
