package main

import (
	"github.com/haryopr/txn-spike-worker/internal/config"
	"github.com/haryopr/txn-spike-worker/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
