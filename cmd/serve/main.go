// Command serve loads the trained artifacts and serves predictions over HTTP.
// SIGHUP reloads the artifacts from disk.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/examscore/config"
	"github.com/YuminosukeSato/examscore/pipeline"
	"github.com/YuminosukeSato/examscore/pkg/log"
	"github.com/YuminosukeSato/examscore/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "examscore.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.GetLogger().Error("Invalid configuration", err)
		return 2
	}
	var opts []log.ProviderOption
	if !cfg.Log.JSON {
		opts = append(opts, log.WithConsole())
	}
	log.SetProvider(log.NewZerologProvider(cfg.LogLevel(), opts...))
	logger := log.GetLoggerWithName("serve")

	trainerCfg := pipeline.ModelTrainerConfig{ArtifactsDir: cfg.Data.ArtifactsDir}
	load := func() server.Inferer {
		p, err := pipeline.LoadPredictor(trainerCfg.ModelPath(), trainerCfg.PreprocessorPath(),
			log.GetLoggerWithName("predictor"))
		if err != nil {
			logger.Warn("Artifacts not loaded", log.PathKey, cfg.Data.ArtifactsDir, "error", err.Error())
			return nil
		}
		return p
	}

	srv := server.New(load(), log.GetLoggerWithName("server"))
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	code := 0
loop:
	for {
		select {
		case <-hup:
			// Keep serving the old model if the reload fails.
			if inf := load(); inf != nil {
				srv.SetInferer(inf)
			}
		case <-ctx.Done():
			logger.Info("Shutdown signal received")
			break loop
		case err := <-errCh:
			logger.Error("Server error", err)
			code = 1
			break loop
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", err)
		code = 1
	}
	logger.Info("Server stopped")
	return code
}
