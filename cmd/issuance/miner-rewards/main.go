package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/aggregate"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/codec"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/metrics"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/node"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/reward"
)

type config struct {
	RPCURL             string        `long:"rpc-url" env:"ISSUANCE_AUDIT_RPC_URL" description:"chain node JSON-RPC URL" default:"http://127.0.0.1:8114"`
	Network            string        `long:"network" env:"ISSUANCE_AUDIT_NETWORK" description:"network name" default:"mainnet"`
	Measure            string        `long:"measure" env:"ISSUANCE_AUDIT_MEASURE" description:"per-block measure to aggregate" choice:"miner" choice:"issuance" default:"miner"`
	StartHeight        uint64        `long:"start-height" env:"ISSUANCE_AUDIT_START_HEIGHT" description:"first block of the audited range" default:"1"`
	EndHeight          uint64        `long:"end-height" env:"ISSUANCE_AUDIT_END_HEIGHT" description:"last block of the audited range, 0 means the node tip"`
	CheckpointPath     string        `long:"checkpoint-path" env:"ISSUANCE_AUDIT_CHECKPOINT_PATH" description:"path of the resumable checkpoint file" default:"issuance-audit-checkpoint.json"`
	CheckpointEvery    int           `long:"checkpoint-every" env:"ISSUANCE_AUDIT_CHECKPOINT_EVERY" description:"persist progress every N windows" default:"10"`
	CheckpointInterval time.Duration `long:"checkpoint-interval" env:"ISSUANCE_AUDIT_CHECKPOINT_INTERVAL" description:"time floor for persisting progress" default:"30s"`
	Concurrency        int           `long:"concurrency" env:"ISSUANCE_AUDIT_CONCURRENCY" description:"concurrent header fetches" default:"32"`
	WindowMultiplier   int           `long:"window-multiplier" env:"ISSUANCE_AUDIT_WINDOW_MULTIPLIER" description:"window size as a multiple of concurrency" default:"8"`
	CallTimeout        time.Duration `long:"call-timeout" env:"ISSUANCE_AUDIT_CALL_TIMEOUT" description:"timeout per RPC attempt" default:"30s"`
	RetryAttempts      uint64        `long:"retry-attempts" env:"ISSUANCE_AUDIT_RETRY_ATTEMPTS" description:"retries per RPC call" default:"5"`
	LogEvery           uint64        `long:"log-every" env:"ISSUANCE_AUDIT_LOG_EVERY" description:"progress log cadence in blocks" default:"100000"`
	MetricsAddr        string        `long:"metrics-addr" env:"ISSUANCE_AUDIT_METRICS_ADDR" description:"address for metrics server" default:":2112"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("issuance audit failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	nodeCfg := node.DefaultConfig()
	nodeCfg.CallTimeout = cfg.CallTimeout
	nodeCfg.RetryAttempts = cfg.RetryAttempts

	client, err := node.Dial(ctx, cfg.RPCURL, nodeCfg, metrics.NewRPCClient(cfg.Network), logger)
	if err != nil {
		return fmt.Errorf("dial node: %w", err)
	}

	tipHeader, err := client.TipHeader(ctx)
	if err != nil {
		return fmt.Errorf("tip header: %w", err)
	}
	end := cfg.EndHeight
	if end == 0 {
		end = uint64(tipHeader.Number)
	}

	var auditor aggregate.BlockAuditor
	switch cfg.Measure {
	case "miner":
		auditor = reward.MinerSecondaryAuditor{EpochReward: reward.SecondaryEpochReward}
	case "issuance":
		auditor = reward.SecondaryIssuanceAuditor{EpochReward: reward.SecondaryEpochReward}
	default:
		return fmt.Errorf("unknown measure %q", cfg.Measure)
	}

	agg, err := aggregate.New(
		aggregate.Config{
			Start:              cfg.StartHeight,
			End:                end,
			Concurrency:        cfg.Concurrency,
			WindowMultiplier:   cfg.WindowMultiplier,
			CheckpointEvery:    cfg.CheckpointEvery,
			CheckpointInterval: cfg.CheckpointInterval,
			LogEvery:           cfg.LogEvery,
		},
		client,
		auditor,
		aggregate.NewFileStore(cfg.CheckpointPath),
		metrics.NewAggregator(cfg.Measure),
		logger,
	)
	if err != nil {
		return err
	}

	logger.Info("aggregating per-block measure",
		zap.String("measure", cfg.Measure),
		zap.Uint64("start_height", cfg.StartHeight),
		zap.Uint64("end_height", end))

	total, err := agg.Run(ctx)
	if err != nil {
		return err
	}

	tipAccounting, err := codec.DecodeAccountingField(tipHeader.Accounting)
	if err != nil {
		return fmt.Errorf("tip header: %w", err)
	}
	logger.Info("issuance audit complete",
		zap.String("measure", cfg.Measure),
		zap.Uint64("start_height", cfg.StartHeight),
		zap.Uint64("end_height", end),
		zap.String("total_shannons", total.Dec()),
		zap.Uint64("treasury_stock_shannons", tipAccounting.TreasuryStock),
		zap.Uint64("unissued_secondary_shannons", tipAccounting.UnissuedSecondary))
	return nil
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
