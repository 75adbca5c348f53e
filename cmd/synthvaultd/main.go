package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"synthvault/config"
	"synthvault/crypto"
	"synthvault/engine"
	"synthvault/gateway"
	"synthvault/ledger"
	"synthvault/observability"
	"synthvault/oracle"
	"synthvault/pricing"
	"synthvault/registry"
	"synthvault/storage"
	"synthvault/token"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "vault.toml", "path to vault configuration")
	flag.Parse()

	env := os.Getenv("SYNTHVAULT_ENV")
	logger := observability.SetupLogging("synthvaultd", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	assetIDs, feedIDs := cfg.AssetLists()
	reg, err := registry.New(assetIDs, feedIDs)
	if err != nil {
		logger.Error("build registry", "error", err)
		os.Exit(1)
	}

	feeds := oracle.NewAggregator(nil, cfg.OracleMaxAge.Duration)
	for _, source := range cfg.Oracles {
		feeds.Register(source.Name, oracle.NewHTTPOracle(nil, source.URL, source.AuthToken))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	led := ledger.New(ledger.NewStateStore(db))
	prices := pricing.NewConverter(reg, feeds)

	vaultKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		logger.Error("generate custody key", "error", err)
		os.Exit(1)
	}
	custody := vaultKey.Address()

	collateral := make(map[string]engine.CollateralToken, len(assetIDs))
	for _, assetID := range assetIDs {
		collateral[assetID] = token.NewVaultToken(assetID)
	}
	synthetic := token.NewSynthetic()
	minter, err := synthetic.GrantMinter(custody)
	if err != nil {
		logger.Error("grant minter", "error", err)
		os.Exit(1)
	}

	minHealthFactor, err := cfg.MinHealthFactor()
	if err != nil {
		logger.Error("parse min health factor", "error", err)
		os.Exit(1)
	}
	params := engine.Params{
		LiquidationThresholdPct: cfg.LiquidationThresholdPct,
		LiquidationBonusPct:     cfg.LiquidationBonusPct,
		MinHealthFactor:         minHealthFactor,
	}

	eng := engine.New(custody, params, reg, prices, led, collateral, minter)
	eng.SetLogger(logger)
	eng.SetMetrics(observability.Metrics())
	eng.SetEmitter(func(evt *engine.Event) {
		logger.Info("vault event", "type", evt.Type, "attributes", evt.Attributes)
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           gateway.NewServer(eng, reg, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("vault gateway listening", "address", cfg.ListenAddress, "custody", custody.String())
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}
}
