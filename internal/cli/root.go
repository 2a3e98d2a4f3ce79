package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"media2txt/internal/config"
	"media2txt/internal/extract"
	"media2txt/internal/fetch"
	"media2txt/internal/ffmpeg"
	"media2txt/internal/logging"
	"media2txt/internal/server"
	"media2txt/internal/transcribe"
	"media2txt/internal/version"
	"media2txt/internal/whisper"
)

// services bundles the wired job services with the configuration they were
// built from.
type services struct {
	cfg         *config.Config
	extractor   *extract.Service
	transcriber *transcribe.Service
}

type appState struct {
	verbose  bool
	jsonLogs bool
	quiet    bool
	httpAddr string

	logger *zap.Logger

	buildFn      func() (*services, error)
	serveStdioFn func(ctx context.Context, svcs *services) error
	serveHTTPFn  func(ctx context.Context, svcs *services, addr string) error
}

func NewRootCmd() *cobra.Command {
	app := &appState{}
	app.buildFn = app.buildServices
	app.serveStdioFn = app.serveStdio
	app.serveHTTPFn = app.serveHTTP

	cmd := &cobra.Command{
		Use:           "media2txt",
		Short:         "MCP tool server that extracts audio tracks and transcribes media files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs, Quiet: app.quiet})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindServeFlags(cmd, app)

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.Flags().BoolVar(&app.quiet, "quiet", app.quiet, "Log warnings and errors only")
}

func bindServeFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.httpAddr, "http", app.httpAddr, "Serve MCP and REST over HTTP on this address (e.g. :8080) instead of stdio")
}

// runServe builds the services and serves over stdio, or over HTTP when an
// address was given by flag or configuration.
func (a *appState) runServe(ctx context.Context) error {
	buildFn := a.buildFn
	if buildFn == nil {
		buildFn = a.buildServices
	}

	serveStdioFn := a.serveStdioFn
	if serveStdioFn == nil {
		serveStdioFn = a.serveStdio
	}

	serveHTTPFn := a.serveHTTPFn
	if serveHTTPFn == nil {
		serveHTTPFn = a.serveHTTP
	}

	svcs, err := buildFn()
	if err != nil {
		return err
	}

	addr := strings.TrimSpace(a.httpAddr)
	if addr == "" {
		addr = strings.TrimSpace(svcs.cfg.HTTPAddr)
	}

	if addr == "" {
		return serveStdioFn(ctx, svcs)
	}
	return serveHTTPFn(ctx, svcs, addr)
}

func (a *appState) buildServices() (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	transcoder := ffmpeg.NewTranscoder(cfg.FFmpegPath, cfg.FFprobePath, a.log())
	fetcher := fetch.New(cfg.CacheDir, nil, a.log())

	var engine transcribe.Engine
	cliEngine, err := whisper.NewCLIEngine(cfg.WhisperPath, cfg.InferenceSlots, a.log())
	if err != nil {
		a.log().Warn("whisper engine unavailable; transcription calls will fail until it is installed", zap.Error(err))
		engine = whisper.UnavailableEngine{Err: err}
	} else {
		engine = cliEngine
	}

	extractor := extract.NewService(transcoder, fetcher, cfg.OutputDir, cfg.JobTimeout, a.log())
	transcriber := transcribe.NewService(transcoder, engine, fetcher, transcribe.Config{
		OutputDir:      cfg.OutputDir,
		ModelDir:       cfg.ModelDir,
		Timeout:        cfg.JobTimeout,
		ChunkThreshold: cfg.ChunkThreshold,
		ChunkOverlap:   cfg.ChunkOverlap,
		AutoDownload:   cfg.AutoDownload,
		Threads:        cfg.Threads,
	}, a.log())

	return &services{cfg: cfg, extractor: extractor, transcriber: transcriber}, nil
}

func (a *appState) serveStdio(ctx context.Context, svcs *services) error {
	srv := server.NewMCPServer(version.Resolve(), svcs.extractor, svcs.transcriber, a.log())
	a.log().Info("serving MCP over stdio")
	return server.ServeStdio(ctx, srv)
}

func (a *appState) serveHTTP(_ context.Context, svcs *services, addr string) error {
	srv := server.NewMCPServer(version.Resolve(), svcs.extractor, svcs.transcriber, a.log())
	app := server.NewApp(version.Resolve(), srv, svcs.extractor, svcs.transcriber, a.log())
	return app.Run(addr)
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}
