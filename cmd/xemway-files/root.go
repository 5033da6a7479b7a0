package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/xemway/xemway-files/internal/config"
	"github.com/xemway/xemway-files/internal/logging"
	"github.com/xemway/xemway-files/pkg/client"
)

var (
	envFiles []string
	logLevel string

	cfg           *config.Config
	loggerCleanup = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:          "xemway-files",
		Short:        "Browse and download Xemway device session files",
		Long:         longRoot,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(envFiles...); err != nil {
				return err
			}
			cfg = config.Load()
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}

			cleanup, err := logging.Setup(logging.Config{
				Level:      cfg.LogLevel,
				Format:     cfg.LogFormat,
				FilePath:   cfg.LogFile,
				MaxSizeMB:  cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
				MaxAgeDays: cfg.LogMaxAgeDays,
				Compress:   cfg.LogCompress,
			})
			if err != nil {
				return fmt.Errorf("setting up logging: %w", err)
			}
			loggerCleanup = cleanup
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return loggerCleanup()
		},
	}
)

const longRoot = `xemway-files talks to the Xemway device-data service.

Connection settings are read from the environment, or from a .env file:

  XEMWAY_API_ENDPOINT    API base URL
  XEMWAY_AUTH_ENDPOINT   login service base URL
  XEMWAY_AUTH_USERNAME   login user
  XEMWAY_AUTH_PASSWORD   login password

Examples:

  xemway-files list DELTA_0018 --contains 20211119
  xemway-files download SESSION_NAME --extract --keep-containing ACC --keep-containing HR
  xemway-files mcp`

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(listCmd, downloadCmd, mcpCmd)
}

// withTimeout bounds ctx by d. Zero or negative leaves ctx unbounded, the
// same as the MCP tools.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// login validates the configuration and opens an authenticated session.
// The caller closes it.
func login(ctx context.Context) (*client.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.HTTPClientTimeout
	httpClient := &http.Client{Transport: transport}

	return client.Login(ctx, cfg.AuthEndpoint, cfg.AuthUsername, cfg.AuthPassword,
		client.WithBaseURL(cfg.APIEndpoint),
		client.WithHTTPClient(httpClient),
	)
}
