package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/openinfo/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "openinfo",
	Short: "Openinfo - harvester for published BC freedom-of-information responses",
	Long: `Openinfo walks the monthly listings of the BC openinfo portal, validates each
published freedom-of-information response against its detail page, and stores
the accepted records.

The download step fetches every attached document and measures it: pages for
PDF and TIFF, rows for spreadsheets and CSV, and seconds for audio and video.
Only the primary release package counts toward a record's totals.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which commands pass to
// every blocking call
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "openinfo %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.openinfo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.openinfo")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// OPENINFO_STORAGE_DATABASE_PATH overrides storage.database_path
	viper.SetEnvPrefix("OPENINFO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file, environment and flags over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	bindDefaults(cfg)
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// bindDefaults registers every leaf key so AutomaticEnv can see it
func bindDefaults(cfg *model.Config) {
	defaults := map[string]any{
		"portal.home_url":                   cfg.Portal.HomeURL,
		"portal.base_url":                   cfg.Portal.BaseURL,
		"portal.search_path":                cfg.Portal.SearchPath,
		"portal.page_size":                  cfg.Portal.PageSize,
		"http.timeout":                      cfg.HTTP.Timeout,
		"http.user_agent":                   cfg.HTTP.UserAgent,
		"http.max_redirects":                cfg.HTTP.MaxRedirects,
		"http.max_body_bytes":               cfg.HTTP.MaxBodyBytes,
		"http.max_retries":                  cfg.HTTP.MaxRetries,
		"http.respect_robots":               cfg.HTTP.RespectRobots,
		"http.http_proxy":                   cfg.HTTP.HTTPProxy,
		"http.https_proxy":                  cfg.HTTP.HTTPSProxy,
		"rate_limiting.requests_per_second": cfg.RateLimiting.RequestsPerSecond,
		"rate_limiting.burst_size":          cfg.RateLimiting.BurstSize,
		"cache.enabled":                     cfg.Cache.Enabled,
		"cache.memory_ttl":                  cfg.Cache.MemoryTTL,
		"cache.disk_dir":                    cfg.Cache.DiskDir,
		"cache.disk_ttl":                    cfg.Cache.DiskTTL,
		"storage.database_path":             cfg.Storage.DatabasePath,
		"storage.download_dir":              cfg.Storage.DownloadDir,
		"tools.pdfinfo":                     cfg.Tools.PDFInfo,
		"tools.tiffinfo":                    cfg.Tools.TIFFInfo,
		"tools.mediainfo":                   cfg.Tools.MediaInfo,
		"output.log_level":                  cfg.Output.LogLevel,
		"output.report_path":                cfg.Output.ReportPath,
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// newLogger builds the console logger for cfg; --verbose forces debug
func newLogger(cfg *model.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Output.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Output.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// commandContext returns the command context carrying the run logger
func commandContext(cmd *cobra.Command, cfg *model.Config) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg)
	return logger.WithContext(ctx)
}
