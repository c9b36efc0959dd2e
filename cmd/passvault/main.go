package main

import (
	"context"
	"log"
	"os"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/passvault/internal/buildinfo"
	"github.com/dmitrijs2005/passvault/internal/cli"
	"github.com/dmitrijs2005/passvault/internal/clipboard"
	"github.com/dmitrijs2005/passvault/internal/config"
	"github.com/dmitrijs2005/passvault/internal/exportcodec"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/repositories/repomanager"
	"github.com/dmitrijs2005/passvault/internal/store"
	"github.com/dmitrijs2005/passvault/internal/vault"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := run(context.Background()); err != nil {
		log.Printf("%v", err)
		memguard.SafeExit(1)
	}

}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	db, rm, err := repomanager.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	exports, err := exportStore(ctx, cfg)
	if err != nil {
		return err
	}

	guard := clipboard.NewGuard(clipboard.System{}, clipboard.WithLogger(logger))
	svc := vault.NewService(store.NewSQLStore(db, rm), cfg, logger, vault.WithClipboard(guard))

	cli.NewApp(svc, exports, logger, os.Stdin, os.Stdout).Run(ctx)
	return nil
}

func exportStore(ctx context.Context, cfg *config.Config) (exportcodec.Store, error) {
	if cfg.ExportBackend != config.ExportBackendS3 {
		return exportcodec.NewFileStore(cfg.ExportDir), nil
	}
	return exportcodec.NewS3Store(ctx, exportcodec.S3Options{
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
	})
}
