package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"

	imagehandler "github.com/aliskhannn/compressor/internal/api/handlers/image"
	pdfhandler "github.com/aliskhannn/compressor/internal/api/handlers/pdf"
	"github.com/aliskhannn/compressor/internal/api/handlers/system"
	"github.com/aliskhannn/compressor/internal/api/router"
	"github.com/aliskhannn/compressor/internal/api/server"
	"github.com/aliskhannn/compressor/internal/capability"
	"github.com/aliskhannn/compressor/internal/config"
	"github.com/aliskhannn/compressor/internal/executil"
	imgproc "github.com/aliskhannn/compressor/internal/processor/image"
	pdfproc "github.com/aliskhannn/compressor/internal/processor/pdf"
	"github.com/aliskhannn/compressor/internal/service/download"
	imagesvc "github.com/aliskhannn/compressor/internal/service/image"
	pdfsvc "github.com/aliskhannn/compressor/internal/service/pdf"
	"github.com/aliskhannn/compressor/internal/storage/file"
	"github.com/aliskhannn/compressor/internal/sweeper"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the temp file sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func serve(parent context.Context, configPath string) error {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad(configPath)

	// Temp roots are created here, before anything is accepted.
	storage, err := file.NewStorage(afero.NewOsFs(), cfg.Storage.BaseDir)
	if err != nil {
		return err
	}

	// Optional tools are looked up once; everything downstream gets the result.
	runner := executil.NewExecRunner()
	caps := capability.Probe(ctx, runner, capability.Tools{
		Ghostscript: cfg.Tools.Ghostscript,
		HEIFEnc:     cfg.Tools.HEIFEnc,
		HEIFDec:     cfg.Tools.HEIFDec,
	})

	imageProcessor := imgproc.New(storage.Fs(), runner, caps, cfg.Limits.MaxDecodedBytes)
	pdfCompressor := pdfproc.New(storage.Fs(), runner, caps.GhostscriptPath, cfg.Tools.PDFTimeout)

	imageService := imagesvc.NewService(storage, imageProcessor, cfg.Limits.MaxImageBytes)
	pdfService := pdfsvc.NewService(storage, pdfCompressor, cfg.Limits.MaxPDFBytes)
	downloads := download.NewService(storage)

	r := router.Setup(
		imagehandler.NewHandler(imageService, caps),
		pdfhandler.NewHandler(pdfService, downloads),
		system.NewHandler(caps, pdfCompressor, storage, system.Limits{
			MaxImageBytes: cfg.Limits.MaxImageBytes,
			MaxPDFBytes:   cfg.Limits.MaxPDFBytes,
			Retention:     cfg.Storage.Retention,
		}),
		cfg.Limits.MaxBodyBytes,
	)

	// Start the sweeper in a separate goroutine.
	var wg sync.WaitGroup
	sw := sweeper.New(storage.Fs(), rootDirs(storage), cfg.Storage.Retention, cfg.Storage.SweepInterval)
	wg.Add(1)
	go sw.Run(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	s := server.New(cfg.Server.Addr(), r, server.Timeouts{
		Read:       cfg.Server.ReadTimeout,
		Write:      cfg.Server.WriteTimeout,
		Idle:       cfg.Server.IdleTimeout,
		ReadHeader: cfg.Server.ReadHeaderTimeout,
	})
	go func() {
		zlog.Logger.Info().Str("addr", s.Addr).Str("temp_dir", storage.BasePath()).Msg("server started")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for the sweeper goroutine to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	return nil
}

func rootDirs(s *file.Storage) []string {
	dirs := make([]string, 0, len(file.Categories))
	for _, cat := range file.Categories {
		dirs = append(dirs, s.Root(cat))
	}

	return dirs
}
