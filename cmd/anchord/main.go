// anchord is the all-in-one demo node: an in-process validating overlay
// chain, a filesystem wallet exposed as a custody gRPC service, and index
// consumers for the DID, message and credential topics.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/opencura/anchor/config"
	"github.com/opencura/anchor/custody"
	"github.com/opencura/anchor/custody/grpccustody"
	"github.com/opencura/anchor/index"
	"github.com/opencura/anchor/ledger"
	"github.com/opencura/anchor/overlay"
)

func main() {
	fs := flag.NewFlagSet("anchord", flag.ExitOnError)
	configPath := fs.String("config", "", "TOML config file (defaults apply when empty)")
	_ = fs.Parse(os.Args[1:])

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("app", "anchord").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load failed")
	}

	ks, err := custody.NewKeyStore(cfg.KeysDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("keystore open failed")
	}
	chain := overlay.NewChain()
	wallet, err := custody.NewWallet(ks, chain)
	if err != nil {
		logger.Fatal().Err(err).Msg("wallet load failed")
	}
	if len(wallet.Keys()) == 0 {
		logger.Fatal().Str("dir", ks.Directory).Msg("no identities in keystore; run `anchorctl keys init` first")
	}
	if cfg.MintValue > 0 {
		for _, key := range wallet.Keys() {
			op := chain.Mint(cfg.MintValue, ledger.PayToPubKey(key))
			logger.Info().Str("outpoint", op.String()).Uint64("value", cfg.MintValue).Msg("minted demo funding")
		}
	}

	ix, err := index.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("index open failed")
	}
	defer ix.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, topic := range []string{cfg.DIDTopic, cfg.MessageTopic, cfg.CredentialTopic} {
		topic := topic
		ch := chain.Subscribe(topic, 256)
		go func() {
			if err := ix.Run(ctx, ch); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Str("topic", topic).Msg("index consumer stopped")
			}
		}()
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Fatal().Err(err).Str("listen", cfg.Listen).Msg("listen failed")
	}
	defer lis.Close()

	srv := grpc.NewServer()
	grpccustody.RegisterCustodyServer(srv, &grpccustody.Server{Custody: wallet})

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	logger.Info().Str("listen", lis.Addr().String()).Int("identities", len(wallet.Keys())).Msg("custody service up")
	if err := srv.Serve(lis); err != nil {
		logger.Fatal().Err(err).Msg("serve failed")
	}
	logger.Info().Msg("stopped")
}
