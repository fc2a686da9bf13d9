// Command dualtreed runs a dual-tree task queue node: it serves the debug
// and metrics HTTP surface, listens for reference-subtree notifications
// from peers over libp2p, and exposes the scheduling core to local
// callers embedding this process as a library would. Command shape
// grounded on the teacher's cmd/ollama-distributed/main.go cobra root.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/multiformats/go-multiaddr"
	"github.com/spf13/cobra"

	"github.com/dualtree-sched/dualtreequeue/internal/config"
	"github.com/dualtree-sched/dualtreequeue/pkg/apiserver"
	"github.com/dualtree-sched/dualtreequeue/pkg/cache"
	"github.com/dualtree-sched/dualtreequeue/pkg/dualtree"
	"github.com/dualtree-sched/dualtreequeue/pkg/exchange"
	"github.com/dualtree-sched/dualtreequeue/pkg/metric"
	"github.com/dualtree-sched/dualtreequeue/pkg/tree"
)

var version = "0.1.0-dev"

func main() {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:     "dualtreed",
		Short:   "Distributed dual-tree task queue node",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(startCmd(&cfgPath))
	rootCmd.AddCommand(validateCmd(&cfgPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func validateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			fmt.Println("configuration ok")
			return nil
		},
	}
}

func startCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the node: queue core, exchange listener, and debug API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*cfgPath)
		},
	}
}

// demoQueryTable builds a small balanced frontier for the node to
// schedule against. Real deployments supply their own tree.QueryTable
// (or an equivalent dualtree.QueryTable) wired to their actual dataset;
// constructing that tree is a non-goal of this package.
func demoQueryTable() *tree.QueryTable {
	leaf := func(name string, lo, hi float64) *tree.Node {
		return tree.NewLeaf(name, 1, metric.Bound{Low: lo, High: hi})
	}
	left := tree.NewInternal("Q_L", leaf("Q_LL", 0, 1), leaf("Q_LR", 1, 2))
	right := tree.NewInternal("Q_R", leaf("Q_RL", 2, 3), leaf("Q_RR", 3, 4))
	root := tree.NewInternal("Q_ROOT", left, right)
	return &tree.QueryTable{Root: root}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("dualtreed: load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	refCache, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		return fmt.Errorf("dualtreed: connect cache: %w", err)
	}
	defer refCache.Close()

	queue := dualtree.New().WithLogger(logger)
	queue.Init(demoQueryTable(), cfg.Queue.MaxQuerySubtreeSize, refCache)

	sub := exchange.NewSubscriber(queue, refCache, exchangeNodeBuilder(), cfg.P2P.RateLimit, cfg.P2P.RateBurst, logger)

	exHost, err := exchange.NewHost(cfg.P2P.ListenAddr, cfg.P2P.Topic, sub, logger)
	if err != nil {
		return fmt.Errorf("dualtreed: start exchange host: %w", err)
	}
	defer exHost.Close()
	logger.Info("exchange host listening", "id", exHost.ID().String(), "addrs", exHost.Addrs())

	api := apiserver.New(apiserver.Config{
		Listen:      cfg.API.Listen,
		JWTSecret:   cfg.API.JWTSecret,
		TokenExpiry: cfg.API.TokenExpiry,
		CorsOrigins: cfg.API.CorsOrigins,
	}, queue, logger)
	if err := api.SetOperatorPassword(cfg.API.OperatorPassword); err != nil {
		return fmt.Errorf("dualtreed: set operator password: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dialBootstrapPeers(ctx, exHost, cfg.P2P.BootstrapPeers, cfg.P2P.DialTimeout, logger)

	var recorder *apiserver.MetricsRecorder
	if cfg.DBURL != "" {
		recorder, err = apiserver.NewMetricsRecorder(cfg.DBURL, queue, logger)
		if err != nil {
			logger.Warn("metrics persistence disabled", "error", err)
		} else {
			defer recorder.Close()
			go recorder.Run(ctx, cfg.API.MetricsInterval)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := api.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("dualtreed: api server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return api.Stop(shutdownCtx)
}

// dialBootstrapPeers connects the exchange host to every configured
// bootstrap peer, one dial at a time, each bounded by dialTimeout. A
// failed dial is logged and skipped rather than treated as fatal: a
// bootstrap peer being unreachable at startup should not stop this node
// from serving the peers it can reach.
func dialBootstrapPeers(ctx context.Context, exHost *exchange.Host, peers []string, dialTimeout time.Duration, logger *slog.Logger) {
	for _, raw := range peers {
		addr, err := multiaddr.NewMultiaddr(raw)
		if err != nil {
			logger.Warn("invalid bootstrap peer address", "address", raw, "error", err)
			continue
		}

		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		err = exHost.Connect(dialCtx, addr)
		cancel()
		if err != nil {
			logger.Warn("failed to connect to bootstrap peer", "address", raw, "error", err)
			continue
		}
		logger.Info("connected to bootstrap peer", "address", raw)
	}
}

// exchangeNodeBuilder constructs the reference-subtree node for an inbound
// Notification: a leaf when NodeIsLeaf is set, otherwise an internal node
// whose two leaf children split the notified bound and count in half. A
// real deployment resolves the cache_id against
// its local reference dataset instead of trusting the notification's own
// bound, but that resolution is outside this core's scope.
func exchangeNodeBuilder() exchange.NodeBuilder {
	return func(n exchange.Notification) dualtree.SubtreeNode {
		bound := metric.Bound{Low: n.ReferenceLow, High: n.ReferenceHi}
		if n.NodeIsLeaf {
			return tree.NewLeaf(n.CacheID, n.NodeCount, bound)
		}
		half := (bound.Low + bound.High) / 2
		left := tree.NewLeaf(n.CacheID+"-l", n.NodeCount/2, metric.Bound{Low: bound.Low, High: half})
		right := tree.NewLeaf(n.CacheID+"-r", n.NodeCount-n.NodeCount/2, metric.Bound{Low: half, High: bound.High})
		return tree.NewInternal(n.CacheID, left, right)
	}
}
