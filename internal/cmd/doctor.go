package cmd

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/core/store"
	errwrap "github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/observability"
)

var doctorClient = &http.Client{Timeout: 10 * time.Second}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the gateway configuration and upstream connectivity.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		observability.CLILogger.Info("=== " + config.BinaryName + " doctor ===")
		observability.CLILogger.Info("")
		observability.CLILogger.Info("Running diagnostic checks...")
		observability.CLILogger.Info("")

		allChecks := true
		totalChecks := 6

		// Check 1: Go version
		goVersion := runtime.Version()
		if goVersion >= "go1.23" {
			observability.CLILogger.Info(fmt.Sprintf("[1/%d] Checking Go version... ✅ %s", totalChecks, goVersion), zap.String("go_version", goVersion))
		} else {
			observability.CLILogger.Warn(fmt.Sprintf("[1/%d] Checking Go version... ⚠️  %s (recommended: go1.23+)", totalChecks, goVersion), zap.String("go_version", goVersion))
			allChecks = false
		}

		// Check 2: Configuration
		cfg, err := config.Load()
		if err != nil {
			observability.CLILogger.Error(fmt.Sprintf("[2/%d] Checking configuration... ❌ %v", totalChecks, err))
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration is invalid", errwrap.WrapConfigInvalid(ctx, err, "invalid configuration"))
			return
		}
		observability.CLILogger.Info(fmt.Sprintf("[2/%d] Checking configuration... ✅ valid", totalChecks),
			zap.String("allowed_base", cfg.Airtable.AllowedBase),
			zap.Int("allowed_tables", len(cfg.Airtable.AllowedTables)))

		// Check 3: Store
		db, err := store.Open(ctx, cfg.Store)
		if err != nil {
			observability.CLILogger.Error(fmt.Sprintf("[3/%d] Checking store... ❌ %v", totalChecks, err))
			allChecks = false
		} else {
			if err := db.Migrate(ctx); err != nil {
				observability.CLILogger.Error(fmt.Sprintf("[3/%d] Checking store... ❌ migration failed: %v", totalChecks, err))
				allChecks = false
			} else {
				observability.CLILogger.Info(fmt.Sprintf("[3/%d] Checking store... ✅ %s", totalChecks, db.Driver()))
			}
			_ = db.Close()
		}

		// Check 4: Airtable token + reachability
		if strings.TrimSpace(cfg.Airtable.Token) == "" {
			observability.CLILogger.Warn(fmt.Sprintf("[4/%d] Checking Airtable... ⚠️  no token configured (set LEADGATE_AIRTABLE_TOKEN)", totalChecks))
			allChecks = false
		} else if ok := checkReachable(ctx, cfg.Airtable.BaseURL); !ok {
			observability.CLILogger.Warn(fmt.Sprintf("[4/%d] Checking Airtable... ⚠️  %s unreachable", totalChecks, cfg.Airtable.BaseURL))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[4/%d] Checking Airtable... ✅ token set, %s reachable", totalChecks, cfg.Airtable.BaseURL))
		}

		// Check 5: Scoring provider token + reachability
		if strings.TrimSpace(cfg.Scoring.Token) == "" {
			observability.CLILogger.Warn(fmt.Sprintf("[5/%d] Checking scoring provider... ⚠️  no token configured (set LEADGATE_SCORING_TOKEN)", totalChecks))
			allChecks = false
		} else if ok := checkReachable(ctx, cfg.Scoring.BaseURL); !ok {
			observability.CLILogger.Warn(fmt.Sprintf("[5/%d] Checking scoring provider... ⚠️  %s unreachable", totalChecks, cfg.Scoring.BaseURL))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[5/%d] Checking scoring provider... ✅ token set, %s reachable", totalChecks, cfg.Scoring.BaseURL))
		}

		// Check 6: Dashboard origin
		if ok := checkReachable(ctx, cfg.Origin.URL); !ok {
			observability.CLILogger.Warn(fmt.Sprintf("[6/%d] Checking dashboard origin... ⚠️  %s unreachable", totalChecks, cfg.Origin.URL))
			allChecks = false
		} else {
			observability.CLILogger.Info(fmt.Sprintf("[6/%d] Checking dashboard origin... ✅ %s reachable", totalChecks, cfg.Origin.URL))
		}

		observability.CLILogger.Info("")
		if allChecks {
			fmt.Print(ascii.DrawBox("All checks passed.\nThe gateway is ready to serve.", 0))
		} else {
			fmt.Print(ascii.DrawBox("Some checks failed.\nReview the warnings above before serving traffic.", 0))
			ExitWithCode(observability.CLILogger, foundry.ExitFailure, "Diagnostics reported failures", nil)
		}
	},
}

// checkReachable sends an unauthenticated HEAD request. Any HTTP
// response counts as reachable; only transport failures do not.
func checkReachable(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := doctorClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
