package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/liberty-tools/liberty-lsp/internal/catalog"
	"github.com/liberty-tools/liberty-lsp/internal/config"
	"github.com/liberty-tools/liberty-lsp/internal/dispatch"
	"github.com/liberty-tools/liberty-lsp/internal/fix"
	"github.com/liberty-tools/liberty-lsp/internal/jakarta"
	"github.com/liberty-tools/liberty-lsp/internal/lsp"
	"github.com/liberty-tools/liberty-lsp/internal/remote"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	remote     string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "liberty-lsp",
		Short:        "Quick fixes for Jakarta EE diagnostics",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file (default: liberty-lsp/config.toml in the user config dir)")
	cmd.Flags().StringVar(&f.remote, "remote", "", "analysis server address (host:port, tcp://, unix://, ws://, wss://)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func loadConfig(f flags) (*config.Config, string, error) {
	path := f.configPath
	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if f.remote != "" {
		cfg.Remote = f.remote
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
	}
	return cfg, path, nil
}

// newLogger logs to stderr, stdout carries the editor protocol
func newLogger(level zapcore.Level) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

// newDispatcher builds the catalog and the provider registry
func newDispatcher(logger *zap.Logger) (*dispatch.Dispatcher, error) {
	b := catalog.NewBuilder()
	rb := fix.NewRegistryBuilder()
	if err := jakarta.Register(b, rb); err != nil {
		return nil, fmt.Errorf("failed to register fixes: %w", err)
	}

	reg, err := rb.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build fix registry: %w", err)
	}
	cat := b.Build()
	if err := cat.Validate(reg); err != nil {
		return nil, err
	}

	return dispatch.New(cat, reg, logger), nil
}

func run(ctx context.Context, f flags) error {
	cfg, configPath, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Level())
	defer func() { _ = logger.Sync() }()

	var trace atomic.Bool
	trace.Store(cfg.Trace)

	dispatcher, err := newDispatcher(logger)
	if err != nil {
		return err
	}

	server, err := lsp.NewServer(lsp.Options{
		Dispatcher:   dispatcher,
		ServerID:     cfg.ServerID,
		FetchTimeout: cfg.Timeout(),
		Source:       cfg.Source(),
		Trace:        trace.Load,
		Version:      version,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	if cfg.Remote != "" {
		client, err := connectRemote(ctx, cfg.Remote, server, trace.Load, logger)
		if err != nil {
			logger.Warn("remote server unavailable, serving local fixes only", zap.String("address", cfg.Remote), zap.Error(err))
		} else {
			defer client.Close()
		}
	}

	if configPath != "" {
		watcher, err := config.Watch(configPath, config.DefaultDebounce, logger, func(c *config.Config) {
			server.Executor().SetFetchTimeout(c.Timeout())
			trace.Store(c.Trace)
		})
		if err != nil {
			logger.Warn("failed to watch config", zap.String("path", configPath), zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	logger.Info("starting language server", zap.String("version", version), zap.String("server_id", cfg.ServerID))
	return server.Start(os.Stdin, os.Stdout)
}

// connectRemote dials the analysis server and attaches it to server until
// the connection drops
func connectRemote(ctx context.Context, address string, server *lsp.Server, trace func() bool, logger *zap.Logger) (*remote.Client, error) {
	stream, err := remote.Dial(ctx, address)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(ctx, stream, server, remote.Options{
		Logger: logger.Named("remote"),
		Trace:  trace,
	})
	server.ConnectRemote(client)

	go func() {
		<-client.DisconnectNotify()
		logger.Warn("remote server disconnected, serving local fixes only", zap.String("address", address))
		server.ConnectRemote(nil)
	}()
	return client, nil
}
