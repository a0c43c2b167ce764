package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/gyeh/billcheck/internal/config"
	"github.com/gyeh/billcheck/internal/logging"
)

var cfg config.Config

// Threshold flags are read as floats and converted after the config file
// is merged, so an explicit flag wins over the file.
var (
	suspiciousRatio    float64
	cashFallbackFactor float64
)

var rootCmd = &cobra.Command{
	Use:               "billcheck",
	Short:             "Hospital bill → published price reconciliation",
	Long:              "Extracts procedure codes and billed amounts from hospital bills, compares them against published standard and negotiated prices, and flags overcharges.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// .env only fills variables that are not already set.
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	pf.StringVar(&cfg.ConfigFile, "config", os.Getenv("BILLCHECK_CONFIG"), "Optional YAML config file")
	pf.StringVar(&cfg.DefaultHospital, "default-hospital", config.DefaultHospital, "Price list used when a request names none")
	pf.Float64Var(&suspiciousRatio, "suspicious-ratio", 0.10, "Fraction above the negotiated median that flags a charge")
	pf.Float64Var(&cashFallbackFactor, "cash-fallback-factor", 0.9, "Share of the standard charge used when no negotiated or cash price exists")
	pf.BoolVar(&cfg.ExcludePublicPayers, "exclude-public-payers", false, "Drop public-payer plan prices before aggregation (all-products hospitals keep only the All Products plan)")

	cfg.Completion.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Completion.BaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.Completion.Model = os.Getenv("OPENAI_MODEL")
	cfg.Completion.Timeout = 30 * time.Second
	cfg.CacheMaxBytes = 32 << 20
	cfg.DescriptionTTL = 30 * 24 * time.Hour
}

func loadConfig(cmd *cobra.Command, args []string) error {
	cfg.Thresholds.SuspiciousRatio = decimal.NewFromFloat(suspiciousRatio)
	cfg.Thresholds.CashFallbackFactor = decimal.NewFromFloat(cashFallbackFactor)

	if cfg.ConfigFile != "" {
		if err := cfg.LoadFromFile(cfg.ConfigFile); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("suspicious-ratio") {
		cfg.Thresholds.SuspiciousRatio = decimal.NewFromFloat(suspiciousRatio)
	}
	if flags.Changed("cash-fallback-factor") {
		cfg.Thresholds.CashFallbackFactor = decimal.NewFromFloat(cashFallbackFactor)
	}
	if flags.Changed("default-hospital") {
		hospital, _ := flags.GetString("default-hospital")
		cfg.DefaultHospital = hospital
	}
	if flags.Changed("exclude-public-payers") {
		exclude, _ := flags.GetBool("exclude-public-payers")
		cfg.ExcludePublicPayers = exclude
	}
	return cfg.ValidateThresholds()
}

func newLogger() zerolog.Logger {
	return logging.SetupLevel(cfg.LogFormat, cfg.LogLevel)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
