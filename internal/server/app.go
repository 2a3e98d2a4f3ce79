package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"media2txt/internal/extract"
	"media2txt/internal/transcribe"
)

// App serves MCP over streamable HTTP next to a small REST surface that
// returns the same result objects.
type App struct {
	version     string
	router      *gin.Engine
	httpServer  *http.Server
	extractor   Extractor
	transcriber Transcriber
	logger      *zap.Logger
}

func NewApp(version string, mcpServer *mcp.Server, extractor Extractor, transcriber Transcriber, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		version:     version,
		extractor:   extractor,
		transcriber: transcriber,
		logger:      logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))

	router.GET("/health", a.handleHealth)

	mcpHandler := gin.WrapH(mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil))
	router.Any("/mcp", mcpHandler)
	router.Any("/mcp/*path", mcpHandler)

	api := router.Group("/api")
	{
		api.POST("/extract", a.handleExtract)
		api.POST("/transcribe", a.handleTranscribe)
	}

	a.router = router
	return a
}

// Run serves until SIGINT/SIGTERM, then drains connections for up to ten
// seconds before returning.
func (a *App) Run(addr string) error {
	a.httpServer = &http.Server{
		Addr:    addr,
		Handler: a.router,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", addr))
		serveErr <- a.httpServer.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-quit:
		a.logger.Info("shutting down HTTP server", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	a.logger.Info("HTTP server stopped")
	return nil
}

// Handler exposes the routed engine, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": a.version})
}

type extractRequest struct {
	InputPath    string `json:"input_path"`
	OutputName   string `json:"output_name"`
	OutputDir    string `json:"output_dir"`
	AudioQuality string `json:"audio_quality"`
}

func (a *App) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      "invalid request body: " + err.Error(),
			"error_kind": "validation",
		})
		return
	}

	result := a.extractor.Run(c.Request.Context(), extract.Request{
		InputPath:    req.InputPath,
		OutputName:   req.OutputName,
		OutputDir:    req.OutputDir,
		AudioQuality: req.AudioQuality,
	})
	c.JSON(http.StatusOK, result)
}

type transcribeRequest struct {
	InputPath  string `json:"input_path"`
	OutputName string `json:"output_name"`
	OutputDir  string `json:"output_dir"`
	ModelSize  string `json:"model_size"`
	Language   string `json:"language"`
}

func (a *App) handleTranscribe(c *gin.Context) {
	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      "invalid request body: " + err.Error(),
			"error_kind": "validation",
		})
		return
	}

	result := a.transcriber.Run(c.Request.Context(), transcribe.Request{
		InputPath:  req.InputPath,
		OutputName: req.OutputName,
		OutputDir:  req.OutputDir,
		ModelSize:  req.ModelSize,
		Language:   req.Language,
	})
	c.JSON(http.StatusOK, result)
}
