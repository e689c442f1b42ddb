package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/abczzz13/netident"
	netidentprom "github.com/abczzz13/netident/prometheus"
)

const usage = `usage: netident [flags] <command> [args]

commands:
  check <ip> [list...]      report membership in reference lists
  refresh [list...]         download reference lists again
  invalidate [list...]      drop cached reference lists
  expand <cidr>             print every address of an IPv4 range (/16 or longer)
  resolve [resolve flags]   resolve the client identity of a synthetic request
  serve                     serve /whoami and /metrics

flags:`

var (
	errUsage        = errors.New("usage error")
	errUndetermined = errors.New("membership could not be determined")
)

type app struct {
	settings settings
	logger   *slog.Logger
	out      io.Writer

	registry *prom.Registry
	metrics  *netidentprom.PrometheusMetrics
	provider *netident.Provider

	closers []io.Closer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	s, rest, err := parseSettings(args, os.Getenv, stderr)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage)
		return errUsage
	}

	a, err := newApp(ctx, s, stdout, newLogger(stderr, s.debug))
	if err != nil {
		return err
	}
	defer a.close()

	return a.dispatch(ctx, rest[0], rest[1:])
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "netident",
	})
	if debug {
		handler.SetLevel(log.DebugLevel)
	}
	return slog.New(handler)
}

func newApp(ctx context.Context, s settings, out io.Writer, logger *slog.Logger, opts ...netident.ProviderOption) (*app, error) {
	a := &app{
		settings: s,
		logger:   logger,
		out:      out,
		registry: prom.NewRegistry(),
	}

	metrics, err := netidentprom.NewWithRegisterer(a.registry)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	a.metrics = metrics

	store, err := a.newStore(ctx)
	if err != nil {
		return nil, err
	}

	providerOpts := append([]netident.ProviderOption{
		netident.WithFetchTimeout(s.fetchTimeout),
		netident.WithProviderLogger(logger),
		netident.WithProviderMetrics(metrics),
	}, opts...)

	provider, err := netident.NewProvider(netident.NewCache(store), providerOpts...)
	if err != nil {
		a.close()
		return nil, err
	}
	a.provider = provider

	return a, nil
}

func (a *app) newStore(ctx context.Context) (netident.Store, error) {
	if a.settings.redisURL == "" {
		store := netident.NewFileStore(a.settings.cacheDir)
		a.logger.Debug("using file cache", "dir", store.Dir())
		return store, nil
	}

	opt, err := redis.ParseURL(a.settings.redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.closers = append(a.closers, client)

	a.logger.Debug("using redis cache", "addr", opt.Addr, "db", opt.DB)
	return netident.NewRedisStore(client, ""), nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) resolverOptions() []netident.Option {
	opts := []netident.Option{
		netident.WithLogger(a.logger),
		netident.WithMetrics(a.metrics),
		netident.AllowIPv6Clients(a.settings.allowIPv6),
	}
	if a.settings.trustLocal {
		opts = append(opts, netident.TrustLocalProxyDefaults())
	}
	if len(a.settings.trustProxies) > 0 {
		opts = append(opts, netident.TrustLocalProxies(a.settings.trustProxies...))
	}
	return opts
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "check":
		return a.check(ctx, args)
	case "refresh":
		return a.refresh(ctx, args)
	case "invalidate":
		return a.invalidate(ctx, args)
	case "expand":
		return a.expand(args)
	case "resolve":
		return a.resolve(ctx, args)
	case "serve":
		return a.serve(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// listNames returns args, or every configured list when args is empty.
func (a *app) listNames(args []string) []string {
	if len(args) > 0 {
		return args
	}

	sources := a.provider.Sources()
	names := make([]string, 0, len(sources))
	for _, src := range sources {
		names = append(names, src.Name)
	}
	return names
}
