package main

import (
	"context"
	"crypto/ecdsa"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"bridgemint/internal/authz"
	"bridgemint/internal/config"
	"bridgemint/internal/idempotency"
	"bridgemint/internal/logging"
	"bridgemint/internal/mint"
	"bridgemint/internal/minter"
	"bridgemint/internal/oracle"
	"bridgemint/internal/receipt"
	"bridgemint/internal/server"
	"bridgemint/internal/store"
)

func main() {
	log := logging.New("bridgemint")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()

	var (
		holds     store.HoldStore
		transfers store.TransferStore
		idemStore idempotency.Store
		dbHealth  server.Pinger
	)
	if dsn := cfg.Service.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		defer pool.Close()

		if holds, err = store.NewPostgresHoldStore(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("init hold store")
		}
		if transfers, err = store.NewPostgresTransferStore(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("init transfer store")
		}
		if idemStore, err = idempotency.NewPostgresStoreWithPool(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("init idempotency store")
		}
		dbHealth = pool
		log.Info().Msg("using postgres persistence")
	} else {
		holds = store.NewMemoryHoldStore()
		transfers = store.NewMemoryTransferStore()
		idemStore = idempotency.NewMemoryStore()
		log.Warn().Msg("DATABASE_URL not set, state is in-memory only")
	}

	var (
		client    minter.Client
		rpcHealth server.Pinger
		feed      oracle.Feed
	)
	if cfg.Chain.OperatorKey != "" {
		ethClient, err := minter.NewEthClient(ctx, minter.EthClientConfig{
			RPCURL:         cfg.Chain.RPCURL,
			OperatorKeyHex: cfg.Chain.OperatorKey,
			BridgeMinter:   cfg.Deployment.Contracts.BridgeMinter,
			USDToken:       cfg.Deployment.Contracts.USDToken,
			Confirmations:  cfg.Chain.Confirmations,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("init eth client")
		}
		client = ethClient
		rpcHealth = ethClient
		log.Info().Str("operator", ethClient.Operator().Hex()).Msg("connected to chain")

		if addr := cfg.Deployment.Contracts.EthUsdPriceFeed; addr != "" {
			feed, err = oracle.NewChainlinkFeed(ethClient.Backend(), addr, log)
			if err != nil {
				log.Fatal().Err(err).Msg("init price feed")
			}
		}
	} else {
		fake := minter.NewFakeClient()
		client = fake
		rpcHealth = fake
		log.Warn().Msg("OPERATOR_PRIVATE_KEY not set, using simulated chain client")
	}

	signerKey, err := loadSignerKey(cfg.Chain.SignerKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("load signer key")
	}
	signer, err := authz.NewSigner(signerKey, authz.Domain{
		ChainID:  cfg.Deployment.ChainID,
		Contract: common.HexToAddress(cfg.Deployment.Contracts.BridgeMinter),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init authorization signer")
	}
	receiptSigner, err := receipt.NewSigner(signerKey)
	if err != nil {
		log.Fatal().Err(err).Msg("init receipt signer")
	}

	priceOracle, err := oracle.NewAdapter(feed, cfg.Service.FallbackPrice, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init price oracle")
	}

	svc, err := mint.NewService(mint.Options{
		Holds:           holds,
		Transfers:       transfers,
		Idempotency:     idemStore,
		Oracle:          priceOracle,
		Signer:          signer,
		ReceiptSigner:   receiptSigner,
		Client:          client,
		ChainID:         cfg.Deployment.ChainID,
		DeadlineWindow:  cfg.Service.DeadlineWindow,
		ExplorerBaseURL: cfg.Deployment.ExplorerBaseURL,
		MinterVersion:   cfg.Service.MinterVersion,
		Log:             log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init mint service")
	}

	apiServer := server.NewServer(svc, server.Options{
		Port:          cfg.Service.HTTPPort,
		HMACSecret:    cfg.Service.HMACSecret,
		HMACClockSkew: cfg.Service.HMACClockSkew,
		RPCHealth:     rpcHealth,
		DBHealth:      dbHealth,
		Log:           log,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)
}

func loadSignerKey(hexKey string, log zerolog.Logger) (*ecdsa.PrivateKey, error) {
	if hexKey == "" {
		log.Warn().Msg("SIGNER_PRIVATE_KEY not set, using an ephemeral key")
		return crypto.GenerateKey()
	}
	return crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
}
