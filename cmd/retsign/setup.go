package main

import (
	"fmt"

	"github.com/newthinker/retsign/internal/config"
	"github.com/newthinker/retsign/internal/logger"
	"github.com/newthinker/retsign/internal/report"
	"github.com/newthinker/retsign/internal/storage/archive"
	"go.uber.org/zap"
)

// loadConfig reads .env, then the config file (or defaults), and applies
// the --debug flag.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}

	cfg := config.Defaults()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if debug {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Options{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		Compress:    cfg.Logging.Compress,
	})
}

// openReports returns the report archive, or nil when archiving is off.
func openReports(cfg *config.Config, log *zap.Logger) (*archive.Reports, error) {
	store, err := archive.Open(cfg.Archive.Type, cfg.Archive.Path, archive.S3Config{
		Bucket:    cfg.Archive.S3.Bucket,
		Endpoint:  cfg.Archive.S3.Endpoint,
		Region:    cfg.Archive.S3.Region,
		AccessKey: cfg.Archive.S3.AccessKey,
		SecretKey: cfg.Archive.S3.SecretKey,
		Prefix:    cfg.Archive.S3.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	if store == nil {
		return nil, nil
	}

	format, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return nil, err
	}
	return archive.NewReports(store, format, log.Named("archive")), nil
}
