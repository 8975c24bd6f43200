// Command zyraxctl signs in to the Zyrax API, keeps the session in a local store and
// sends authenticated requests with transparent token refresh.
//
// Usage:
//
//	zyraxctl [flags] login <username>
//	zyraxctl [flags] force-login <username>
//	zyraxctl [flags] status
//	zyraxctl [flags] logout
//	zyraxctl [flags] get <path>
//	zyraxctl [flags] console
//
// The password is read from ZYRAX_PASSWORD, or from the first line of stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	goSession "github.com/zyraxfit/goSession"
	"github.com/zyraxfit/goSession/internal/config"
	"github.com/zyraxfit/goSession/internal/logging"
	"github.com/zyraxfit/goSession/session"
)

const redisConnectTimeout = 10 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file; environment variables override it")
		dotenv     = flag.String("env", ".env", "dotenv file loaded before the environment when present")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath, *dotenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, logger, flag.Args()))
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: zyraxctl [flags] login|force-login <username> | status | logout | get <path> | console\n")
	flag.PrintDefaults()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, args []string) int {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("open session store", zap.Error(err))
		return 1
	}
	defer closeStore()

	b := goSession.New().
		WithConfig(cfg.Engine()).
		WithStore(store).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		b = b.WithAuditSink(goSession.NewLoggerAuditSink(logger))
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		return 2
	}
	return cmd(ctx, &cli{cfg: cfg, builder: b, logger: logger}, args[1:])
}

// openStore returns the configured session store and a func releasing it.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	keys := cfg.Engine().Keys

	switch cfg.Store.Kind {
	case config.StoreMemory:
		return session.NewMemoryStore(), func() {}, nil

	case config.StoreRedis:
		client, err := session.ConnectRedis(ctx, &redis.Options{Addr: cfg.Store.RedisAddr}, redisConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewRedisStore(client, cfg.Store.RedisPrefix, keys)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil

	default:
		path, err := cfg.StorePath()
		if err != nil {
			return nil, nil, err
		}
		store, err := session.NewFileStore(path, keys)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
