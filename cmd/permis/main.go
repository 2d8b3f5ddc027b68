// Command permis is the PermisConnect client: log in, pick a driving
// school, read courses and book driving lessons.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"permisconnect/internal/api"
	"permisconnect/internal/config"
	"permisconnect/internal/session"
	"permisconnect/pkg/logger"
	rredis "permisconnect/pkg/redis"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := sessionStore(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "session store:", err)
		return 1
	}
	defer closeStore()

	sess := session.New(store, log)
	if err := sess.Init(ctx); err != nil {
		log.Warn("could not load the saved session", zap.Error(err))
	}

	cli, err := newCommandLine(cfg.APIURL, cfg.LiveURL, sess, log, os.Stdout, os.Stdin, api.WithTimeout(cfg.APITimeout))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	err = cli.run(ctx, os.Args)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case errors.Is(err, errHelp):
		return 2
	}
	fmt.Fprintln(os.Stderr, describe(err))
	log.Debug("command failed", zap.Error(err))
	return 1
}

// sessionStore builds the configured store and its cleanup.
func sessionStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case "", "file":
		return session.NewFileStore(cfg.SessionFile), func() {}, nil
	case "redis":
		rc, err := rredis.NewClient(ctx, rredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(rc, cfg.RedisSessionKey), func() { rc.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown SESSION_STORE %q (want file or redis)", cfg.SessionStore)
}
