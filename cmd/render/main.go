// Command render runs one forecast from the command line: a transaction
// snapshot in, a workbook out. Useful for trying archetype documents without
// standing up the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/finleaf/cashflow-forecast/internal/archetype"
	"github.com/finleaf/cashflow-forecast/internal/models"
	"github.com/finleaf/cashflow-forecast/internal/pipeline"
	"github.com/finleaf/cashflow-forecast/pkg/utils"
)

func main() {
	var (
		clientID      = flag.String("client", "local", "client identifier for the report")
		txPath        = flag.String("transactions", "", "path to a transaction snapshot (JSON array)")
		settingsPath  = flag.String("settings", "", "optional client settings document (JSON: chart, pay schedule, policy rules)")
		archetypePath = flag.String("archetype", "", "path to an archetype document (YAML)")
		outPath       = flag.String("out", "forecast.xlsx", "output workbook path")
		asOfFlag      = flag.String("as-of", "", "forecast as-of date (YYYY-MM-DD, default: latest transaction)")
		windowDays    = flag.Int("window", 90, "recurrence detection window in days")
		logLevel      = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	_ = gotenv.Load()

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: *logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *txPath == "" || *archetypePath == "" {
		fmt.Fprintln(os.Stderr, "both -transactions and -archetype are required")
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*txPath)
	if err != nil {
		logger.Fatal("Failed to read transaction snapshot", zap.Error(err))
	}
	var txs []models.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		logger.Fatal("Failed to parse transaction snapshot", zap.Error(err))
	}

	var settings models.ClientSettings
	if *settingsPath != "" {
		raw, err := os.ReadFile(*settingsPath)
		if err != nil {
			logger.Fatal("Failed to read client settings", zap.Error(err))
		}
		if err := json.Unmarshal(raw, &settings); err != nil {
			logger.Fatal("Failed to parse client settings", zap.Error(err))
		}
	}

	cfg, err := archetype.Load(*archetypePath)
	if err != nil {
		logger.Fatal("Failed to load archetype document", zap.Error(err))
	}

	var asOf time.Time
	if *asOfFlag != "" {
		asOf, err = time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			logger.Fatal("Invalid -as-of date", zap.Error(err))
		}
	}

	forecaster := pipeline.New(logger)
	workbook, report, err := forecaster.Render(pipeline.Request{
		ClientID:            *clientID,
		Transactions:        txs,
		Chart:               settings.Chart,
		PolicyRules:         settings.PolicyRules,
		PaySchedule:         settings.PaySchedule,
		Archetype:           cfg,
		AsOf:                asOf,
		DetectionWindow:     time.Duration(*windowDays) * 24 * time.Hour,
		PayPolicyOffsetDays: settings.PayPolicyOffsetDays,
	})
	if err != nil {
		logger.Fatal("Render failed", zap.Error(err))
	}

	if err := os.WriteFile(*outPath, workbook, 0644); err != nil {
		logger.Fatal("Failed to write workbook", zap.Error(err))
	}

	summary, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode report", zap.Error(err))
	}
	fmt.Println(string(summary))
	fmt.Fprintf(os.Stderr, "workbook written to %s\n", *outPath)
}
