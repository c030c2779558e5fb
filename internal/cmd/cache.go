package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leadgate/leadgate/internal/output"
	"github.com/leadgate/leadgate/internal/webcache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheListOutput string

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(cacheListOutput)
		if err != nil {
			return err
		}

		db, _, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		entries, err := db.ListCachedResponses(cmd.Context())
		if err != nil {
			return err
		}

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		}

		fmt.Println(output.CacheTable(entries))
		return nil
	},
}

var (
	cachePurgeAll bool
	cachePurgeYes bool
)

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge cached responses",
	Long: `Purge cached responses. By default only entries from generations other
than the configured one are removed; --all clears the cache entirely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cachePurgeAll && !cachePurgeYes {
			return errors.New("--all requires --yes")
		}

		db, cfg, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		var purged int64
		if cachePurgeAll {
			purged, err = db.PurgeCache(cmd.Context())
		} else {
			purged, err = db.PurgeOtherGenerations(cmd.Context(), cfg.Cache.Generation)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Purged %d cache entr(ies)\n", purged)
		return nil
	},
}

var cachePrecacheManifest string

var cachePrecacheCmd = &cobra.Command{
	Use:   "precache",
	Short: "Pre-populate the shell-asset cache from a manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		manifestPath := strings.TrimSpace(cachePrecacheManifest)
		if manifestPath == "" {
			manifestPath = cfg.Cache.ManifestPath
		}
		if manifestPath == "" {
			return errors.New("no manifest configured; pass --manifest or set cache.manifest_path")
		}

		manifest, err := webcache.LoadManifest(manifestPath)
		if err != nil {
			return err
		}

		origin, err := url.Parse(cfg.Origin.URL)
		if err != nil {
			return fmt.Errorf("origin.url is not a valid URL: %s", cfg.Origin.URL)
		}

		gateway := webcache.NewGateway(origin, db, cfg.Cache.Generation)
		gateway.Timeout = cfg.Origin.Timeout

		stored, err := gateway.Precache(cmd.Context(), manifest)
		if err != nil {
			return fmt.Errorf("precache stopped after %d asset(s): %w", stored, err)
		}

		fmt.Printf("Precached %d asset(s) under generation %s\n", stored, cfg.Cache.Generation)
		return nil
	},
}

func init() {
	cacheListCmd.Flags().StringVar(&cacheListOutput, "output-format", string(output.FormatTable), "Output format: table|json")

	cachePurgeCmd.Flags().BoolVar(&cachePurgeAll, "all", false, "Purge every generation, not just old ones")
	cachePurgeCmd.Flags().BoolVar(&cachePurgeYes, "yes", false, "Confirm destructive purge")

	cachePrecacheCmd.Flags().StringVar(&cachePrecacheManifest, "manifest", "", "Path to the shell-asset manifest (defaults to cache.manifest_path)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cachePrecacheCmd)
	rootCmd.AddCommand(cacheCmd)
}
