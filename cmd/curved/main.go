package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"curvelaunch/config"
	"curvelaunch/core/events"
	"curvelaunch/core/state"
	"curvelaunch/gateway"
	"curvelaunch/gateway/middleware"
	"curvelaunch/native/curve"
	"curvelaunch/native/token"
	"curvelaunch/native/venue"
	"curvelaunch/observability"
	"curvelaunch/observability/logging"
	"curvelaunch/storage/auditstore"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./config.toml", "path to the daemon configuration file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "curved: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.Setup(logging.Options{
		Service: "curved",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Dir:     filepath.Join(cfg.DataDir, "logs"),
	})

	params, err := cfg.CurveParams()
	if err != nil {
		return err
	}
	feeCollector, err := cfg.FeeCollector()
	if err != nil {
		return fmt.Errorf("fee collector: %w", err)
	}
	liquidityCollector, err := cfg.LiquidityCollector()
	if err != nil {
		return fmt.Errorf("liquidity collector: %w", err)
	}

	manager := state.NewManager()
	store := curve.NewStateStore(manager)
	ledger := token.NewLedger(manager)
	if err := ledger.Mint(curve.ModuleAddress, params.TotalSupply); err != nil {
		return fmt.Errorf("seed inventory: %w", err)
	}

	feed, err := buildFeed(cfg)
	if err != nil {
		return err
	}
	oracle := curve.NewOracle(feed, cfg.OracleInterval())

	engine, err := curve.NewEngine(params)
	if err != nil {
		return err
	}
	engine.SetState(store)
	engine.SetLedger(ledger)
	engine.SetOracle(oracle)
	engine.SetFeeCollector(feeCollector)
	engine.SetLiquidityCollector(liquidityCollector)

	sink := venue.New(curve.DeriveAddress("curve/venue"), curve.ModuleAddress, ledger)
	engine.SetSink(sink)

	audit, err := auditstore.Open(filepath.Join(cfg.DataDir, "curve.db"), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := audit.Close(); err != nil {
			log.Error("audit store close failed", "error", err)
		}
	}()

	recorder := events.NewRecorder(4096)
	engine.SetEmitter(events.NewMultiEmitter(recorder, audit, observability.NewEventCounter()))

	server := gateway.New(gateway.Options{
		Engine:   engine,
		Ledger:   ledger,
		Recorder: recorder,
		Logger:   log,
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: cfg.Gateway.RequestsPerMinute,
			Burst:             cfg.Gateway.Burst,
		},
		AdminSecret: cfg.Gateway.AdminSecret,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("curved starting",
		"listen", cfg.ListenAddress,
		"oracleSource", cfg.Oracle.Source,
		"oracleInterval", cfg.OracleInterval().String(),
	)
	if err := server.Serve(ctx, cfg.ListenAddress); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	log.Info("curved stopped")
	return nil
}

func buildFeed(cfg *config.Config) (curve.PriceFeed, error) {
	switch cfg.Oracle.Source {
	case "manual":
		price, err := cfg.ManualPrice()
		if err != nil {
			return nil, err
		}
		return curve.NewManualFeed(price, time.Now().Unix()), nil
	case "http":
		return curve.NewHTTPFeed(nil, cfg.Oracle.Endpoint, cfg.Oracle.AssetID, cfg.Oracle.VsCurrency), nil
	}
	return nil, fmt.Errorf("config: unknown oracle source %q", cfg.Oracle.Source)
}
