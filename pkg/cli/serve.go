package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/cli/config"
	httpctrl "github.com/stenolab/steno/pkg/controller/http"
	"github.com/stenolab/steno/pkg/service/registry"
	"github.com/stenolab/steno/pkg/service/retrieval"
	"github.com/stenolab/steno/pkg/service/suggest"
	"github.com/stenolab/steno/pkg/service/summary"
	"github.com/stenolab/steno/pkg/usecase"
	"github.com/stenolab/steno/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var appCfg config.App
	var repoCfg config.Repository
	var storageCfg config.Storage
	var geminiCfg config.Gemini
	var cacheCfg config.Cache
	var mailCfg config.Mail

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("STENO_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, cacheCfg.Flags()...)
	flags = append(flags, mailCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			tuning, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load tuning configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			blobs, err := storageCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize blob store")
			}

			llm, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize LLM client")
			}

			retrievalSvc := retrieval.New(llm, tuning.RetrievalOptions()...)
			summarySvc := summary.New(llm, cacheCfg.Configure())
			suggestSvc := suggest.New(llm, retrievalSvc, repo.ContextDoc(), tuning.SuggestOptions()...)
			reg := registry.New(repo.Meeting())

			ucOpts := tuning.UsecaseOptions()
			if notifier := mailCfg.Configure(); notifier != nil {
				ucOpts = append(ucOpts, usecase.WithNotifier(notifier))
			}
			uc := usecase.New(repo, blobs, llm, retrievalSvc, summarySvc, ucOpts...)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, reg, suggestSvc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				// Give detached persistence pipelines a chance to finish.
				// Jobs still running at the deadline are logged and
				// abandoned; their failure flags cover reconciliation.
				uc.Tracker().Drain(shutdownCtx)

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
