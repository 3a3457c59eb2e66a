package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirainet/spider/conn"
	"github.com/mirainet/spider/http1"
	"github.com/mirainet/spider/metrics"
	"github.com/mirainet/spider/middleware"
	"github.com/mirainet/spider/spiderconfig"
	"github.com/mirainet/spider/spiderlog"
)

func newServeCmd() *cobra.Command {
	var configFile string
	var addrFlag string
	var verboseFlag bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "load a config file and serve HTTP/1.1 + WebSocket traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := spiderconfig.Load(configFile)
			if err != nil {
				return err
			}
			if addrFlag != "" {
				cfg.Addr = addrFlag
			}
			if verboseFlag {
				cfg.Verbose = true
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&verboseFlag, "verbose", false, "enable debug logging")
	return cmd
}

// runServe builds the route table and middleware chain from cfg and serves
// until an interrupt or SIGTERM triggers a graceful shutdown, per the
// teacher-author's own sibling project's signal.Notify/context.WithTimeout
// shutdown sequence.
func runServe(cfg *spiderconfig.Config) error {
	logger := spiderlog.New(os.Stderr, cfg.Verbose)

	table := conn.NewTable()
	chain := cfg.Middlewares()
	table.HandleBuffered("GET", "/healthz", middleware.Buffered(chain, healthCheck))
	table.HandleBuffered("GET", "/metrics", middleware.Buffered(middleware.Identity(), metrics.Handler))

	rt := conn.NewRuntime(cfg.HTTP1Config(), table, logger)

	errCh := make(chan error, 1)
	go func() {
		if cfg.ReusePort {
			errCh <- rt.ListenAndServeReusePort(cfg.Addr)
		} else {
			errCh <- rt.ListenAndServe(cfg.Addr)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return rt.Shutdown(ctx)
	}
}

func healthCheck(req *http1.Request) *http1.Response {
	resp := http1.NewResponse()
	resp.Status = 200
	resp.Kind = http1.BodyString
	resp.Str = "ok"
	return resp
}
