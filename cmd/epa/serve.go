package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/epa/internal/presentation/tui"
	httpAdapter "github.com/aretw0/epa/pkg/adapters/http"
	"github.com/aretw0/epa/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <automaton> <store>",
	Short: "Serve a recorded trace over HTTP",
	Long: `Starts a read-only HTTP API over the automaton and a trace store, with a
Mermaid overlay endpoint and Prometheus metrics on /metrics. The store is
polled for new transitions, which /events streams as they are recorded
by monitors in other processes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		quiet, _ := cmd.Flags().GetBool("quiet")
		poll, _ := cmd.Flags().GetDuration("poll")

		desc, err := describe(cmd, args[0])
		if err != nil {
			return err
		}
		store, closer, err := openTrace(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		defer closer.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			observability.NewTraceCollector(desc.Automaton, store),
		)

		streams := httpAdapter.NewStreamManager(logger)
		if poll > 0 {
			followCtx, stopFollowing := context.WithCancel(cmd.Context())
			following := streams.Follow(followCtx, store, poll)
			defer func() {
				stopFollowing()
				<-following
			}()
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		mux.Handle("/", httpAdapter.NewHandler(desc.Automaton, store,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithStreams(streams),
		))

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			if !quiet {
				tui.PrintBanner(cmd.ErrOrStderr())
			}
			tui.Success(cmd.ErrOrStderr(), "serving %s on %s", desc.Automaton.Name(), srv.Addr)
			logger.Info("http server listening", "address", srv.Addr, "store", args[1])
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			tui.Success(cmd.ErrOrStderr(), "server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("quiet", false, "Do not print the banner")
	serveCmd.Flags().Duration("poll", time.Second, "Interval between store polls for /events (0 disables)")
}
