// Package cmd holds the deskctl subcommands. Every command reads the same
// environment (and .env file) as the server.
package cmd

import (
	"context"

	"github.com/studentdesk/complaints/internal/app"
	"github.com/studentdesk/complaints/internal/config"
	"github.com/studentdesk/complaints/internal/logger"
)

// withApp boots the full application (migrations included) for fn and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	defer logger.Flush()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(a)
}
