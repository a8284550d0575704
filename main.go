package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dmorgan81/wishcard/internal/config"
	"github.com/dmorgan81/wishcard/internal/handle"
	"github.com/dmorgan81/wishcard/internal/inject"
	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/dmorgan81/wishcard/internal/remover"
	"github.com/dmorgan81/wishcard/internal/server"
	"github.com/dmorgan81/wishcard/internal/typeface"
	"github.com/samber/do"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.New(os.Stderr, slog.LevelInfo).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, log.ParseLevel(cfg.LogLevel))
	ctx := log.NewContext(context.Background(), logger)
	injector := inject.Setup(ctx, cfg)

	// fonts and the remover key are needed by every request, so fail now
	for _, name := range []string{"wishes_font", "name_font"} {
		if _, err := do.InvokeNamed[*typeface.Font](injector, name); err != nil {
			logger.Error("loading font failed", "font", name, "error", err)
			os.Exit(1)
		}
	}
	if _, err := do.Invoke[remover.Remover](injector); err != nil {
		logger.Error("configuring remover failed", "error", err)
		os.Exit(1)
	}

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		h := do.MustInvoke[*handle.URLHandler](injector)
		lambda.StartWithOptions(h.Handle, lambda.WithContext(ctx), lambda.WithEnableSIGTERM(func() {
			_ = injector.Shutdown()
		}))
		return
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg.Addr(), do.MustInvoke[http.Handler](injector)); err != nil {
		logger.Error("server failed", "error", err)
		stop()
		os.Exit(1)
	}
	_ = injector.Shutdown()
}
