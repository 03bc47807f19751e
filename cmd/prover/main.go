package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/conjugatebond/aleo-prover-lite/internal/client"
	"github.com/conjugatebond/aleo-prover-lite/internal/config"
	"github.com/conjugatebond/aleo-prover-lite/internal/identity"
	"github.com/conjugatebond/aleo-prover-lite/internal/metrics"
	"github.com/conjugatebond/aleo-prover-lite/internal/netx"
	"github.com/conjugatebond/aleo-prover-lite/internal/prover"
	"github.com/conjugatebond/aleo-prover-lite/internal/storage/statsbolt"
	"github.com/conjugatebond/aleo-prover-lite/internal/telemetry"
)

var log = logging.Logger("prover/main")

func main() {
	app := &cli.App{
		Name:  "prover",
		Usage: "standalone prover client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "address",
				Aliases:  []string{"a"},
				Usage:    "reward address (hex-encoded)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "beacon",
				Aliases: []string{"b"},
				Usage:   "coordinator address host:port (repeatable; default built-in set)",
			},
			&cli.StringFlag{
				Name:    "worker",
				Aliases: []string{"w"},
				Usage:   "worker label for telemetry (default: host name)",
			},
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"t"},
				Usage:   "solver threads (default: number of CPUs)",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:    "log",
				Aliases: []string{"o"},
				Usage:   "also write logs to this file",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "directory for persistent state (default: ~/.aleo-prover-lite)",
			},
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "expose prometheus metrics on this address (e.g. :9090)",
			},
			&cli.StringFlag{
				Name:  "telemetry",
				Usage: "statistics record endpoint (empty disables)",
				Value: config.DefaultTelemetryURL,
			},
			&cli.BoolFlag{
				Name:  "noise",
				Usage: "tunnel the coordinator connection through a Noise-encrypted relay",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cctx *cli.Context) error {
	setupLogging(cctx.Bool("debug"), cctx.String("log"))

	rewardAddr, err := identity.ParseAddress(cctx.String("address"))
	if err != nil {
		return fmt.Errorf("prover address: %w", err)
	}

	cfg := config.Default()
	cfg.RewardAddress = rewardAddr
	cfg.Worker = cctx.String("worker")
	cfg.MetricsAddr = cctx.String("metrics")
	cfg.TelemetryURL = cctx.String("telemetry")
	cfg.NoiseTunnel = cctx.Bool("noise")
	if beacons := cctx.StringSlice("beacon"); len(beacons) > 0 {
		cfg.Beacons = cfg.Beacons[:0]
		for _, b := range beacons {
			cfg.Beacons = append(cfg.Beacons, netx.Addr(b))
		}
	}
	cfg.Threads = cctx.Int("threads")
	if cfg.Threads == 0 {
		cfg.Threads = runtime.NumCPU()
	}
	cfg.DataDir = cctx.String("data-dir")
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".aleo-prover-lite")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	account, err := identity.New()
	if err != nil {
		return fmt.Errorf("generate account: %w", err)
	}

	store, err := statsbolt.Open(filepath.Join(cfg.DataDir, "stats.db"))
	if err != nil {
		return fmt.Errorf("open stats store: %w", err)
	}
	defer store.Close()

	stats, err := prover.NewStats(store)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	met := metrics.New()

	var dialer netx.Dialer = netx.NewTCPDialer()
	if cfg.NoiseTunnel {
		dialer = netx.NewNoiseDialer(dialer)
	}

	events := make(chan prover.Event, 64)
	cl := client.New(cfg, account, dialer, events, met)
	prv := prover.New(prover.Config{
		Threads:       cfg.Threads,
		RewardAddress: cfg.RewardAddress,
	}, prover.HashSolver{}, stats, met, events, cl.Outbound())

	log.Infow("starting prover",
		"address", cfg.RewardAddress,
		"worker", cfg.Worker,
		"threads", cfg.Threads,
		"beacons", len(cfg.Beacons),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	start := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}

	start(func(ctx context.Context) {
		if err := cl.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("client stopped", "err", err)
		}
	})
	start(cl.RunTicker)
	start(prv.Run)
	if cfg.TelemetryURL != "" {
		rep := telemetry.NewReporter(cfg.TelemetryURL, cfg.RewardAddress.String(), cfg.Worker, cfg.ReportInterval, stats)
		rep.OnReport(func(ts int64) {
			if err := store.SetLastReport(ts); err != nil {
				log.Errorw("persist last report time", "err", err)
			}
		})
		start(rep.Run)
	}
	if cfg.MetricsAddr != "" {
		start(func(ctx context.Context) { met.Serve(ctx, cfg.MetricsAddr) })
	}

	wg.Wait()
	log.Infow("shutdown complete")
	return nil
}

func setupLogging(debug bool, file string) {
	lcfg := logging.Config{
		Format: logging.ColorizedOutput,
		Level:  logging.LevelInfo,
		Stderr: true,
	}
	if debug {
		lcfg.Level = logging.LevelDebug
	}
	if file != "" {
		lcfg.File = file
	}
	logging.SetupLogging(lcfg)
}
