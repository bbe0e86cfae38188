package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"askmynotes/internal/auth"
	"askmynotes/internal/domain"
	"askmynotes/internal/server"
	"askmynotes/internal/watcher"
)

// ServeAction starts the HTTP API and, when configured, the notes watcher.
func ServeAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"), cmd.String("config"))
	if err != nil {
		return err
	}
	defer appCtx.Close()
	cfg := appCtx.Config

	addr := cfg.Server.Addr
	if a := cmd.String("addr"); a != "" {
		addr = a
	}
	devAuth := cfg.Server.DevAuth || cmd.Bool("dev-auth")
	secret := os.Getenv(cfg.Server.JWTSecretEnv)
	if secret == "" && !devAuth {
		return fmt.Errorf("%w: %s is empty and dev auth is off", domain.ErrInvalidConfig, cfg.Server.JWTSecretEnv)
	}
	if devAuth {
		appCtx.Logger.Warn("dev header authentication enabled", "header", auth.DevHeaderName)
	}

	srv := server.New(appCtx.Service, auth.NewChain(secret, devAuth),
		server.WithLogger(appCtx.Logger),
		server.WithBodyLimit(server.BodyLimitFor(cfg.Parser.MaxBytes)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, addr) })

	dir := cfg.Watcher.Dir
	if d := cmd.String("watch"); d != "" {
		dir = d
	}
	if dir != "" {
		user := cfg.Watcher.User
		if user == "" {
			user = "local"
		}
		w, err := watcher.New(dir, user, appCtx.Service, watcher.WithLogger(appCtx.Logger))
		if err != nil {
			return err
		}
		appCtx.Logger.Info("watching notes directory", "dir", dir, "user", user)
		g.Go(func() error { return w.Run(gctx) })
	}
	return g.Wait()
}
