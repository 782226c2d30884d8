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

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/metrics"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/node"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/reward"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/scan"
)

type config struct {
	RPCURL        string        `long:"rpc-url" env:"DAO_AUDIT_RPC_URL" description:"chain node JSON-RPC URL" default:"http://127.0.0.1:8114"`
	Network       string        `long:"network" env:"DAO_AUDIT_NETWORK" description:"network name" default:"mainnet"`
	DAOCodeHash   string        `long:"dao-code-hash" env:"DAO_AUDIT_DAO_CODE_HASH" description:"stake contract code hash, defaults to the mainnet deployment"`
	FromHeight    uint64        `long:"from-height" env:"DAO_AUDIT_FROM_HEIGHT" description:"first block of the audited range"`
	ToHeight      uint64        `long:"to-height" env:"DAO_AUDIT_TO_HEIGHT" description:"last block of the audited range, 0 means the indexer tip"`
	CallTimeout   time.Duration `long:"call-timeout" env:"DAO_AUDIT_CALL_TIMEOUT" description:"timeout per RPC attempt" default:"30s"`
	RetryAttempts uint64        `long:"retry-attempts" env:"DAO_AUDIT_RETRY_ATTEMPTS" description:"retries per RPC call" default:"5"`
	PageLimit     uint64        `long:"page-limit" env:"DAO_AUDIT_PAGE_LIMIT" description:"records per indexer page" default:"1000"`
	Workers       int           `long:"workers" env:"DAO_AUDIT_WORKERS" description:"concurrent reward computations" default:"32"`
	LogEvery      uint64        `long:"log-every" env:"DAO_AUDIT_LOG_EVERY" description:"progress log cadence in transactions" default:"10000"`
	MetricsAddr   string        `long:"metrics-addr" env:"DAO_AUDIT_METRICS_ADDR" description:"address for metrics server" default:":2112"`
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
		logger.Fatal("settlement rewards audit failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	daoCodeHash := hexutil.Bytes(model.DefaultDAOCodeHash)
	if cfg.DAOCodeHash != "" {
		decoded, err := hexutil.Decode(cfg.DAOCodeHash)
		if err != nil {
			return fmt.Errorf("parse dao code hash: %w", err)
		}
		daoCodeHash = decoded
	}

	nodeCfg := node.DefaultConfig()
	nodeCfg.CallTimeout = cfg.CallTimeout
	nodeCfg.RetryAttempts = cfg.RetryAttempts

	client, err := node.Dial(ctx, cfg.RPCURL, nodeCfg, metrics.NewRPCClient(cfg.Network), logger)
	if err != nil {
		return fmt.Errorf("dial node: %w", err)
	}

	to := cfg.ToHeight
	if to == 0 {
		tip, err := client.IndexerTip(ctx)
		if err != nil {
			return fmt.Errorf("indexer tip: %w", err)
		}
		to = uint64(tip.BlockNumber)
	}
	if to < cfg.FromHeight {
		return fmt.Errorf("to-height %d below from-height %d", to, cfg.FromHeight)
	}
	logger.Info("auditing settlement rewards",
		zap.Uint64("from_height", cfg.FromHeight),
		zap.Uint64("to_height", to))

	daoType := model.DAOTypeScript(daoCodeHash)
	key := scan.RangeKey(model.SearchKey{
		Script:     daoType,
		ScriptType: model.ScriptTypeType,
	}, cfg.FromHeight, to)
	records := scan.NewTxScanner(client, key, model.OrderAsc, cfg.PageLimit, metrics.NewScanner("transactions"))

	auditor := reward.NewSettlementAuditor(
		reward.NewCachedTxs(client),
		daoType,
		cfg.Workers,
		cfg.LogEvery,
		logger,
	)
	total, stats, err := auditor.Scan(ctx, records)
	if err != nil {
		return err
	}

	logger.Info("settlement rewards audit complete",
		zap.Uint64("from_height", cfg.FromHeight),
		zap.Uint64("to_height", to),
		zap.String("total_settled_shannons", total.Dec()),
		zap.Uint64("txs_seen", stats.TxsSeen),
		zap.Uint64("txs_counted", stats.TxsCounted),
		zap.Uint64("txs_skipped", stats.TxsSkipped))
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
