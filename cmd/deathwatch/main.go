package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ritwikverma/deathwatch/internal/collect"
	"github.com/ritwikverma/deathwatch/internal/config"
	"github.com/ritwikverma/deathwatch/internal/database"
	"github.com/ritwikverma/deathwatch/internal/feed"
	"github.com/ritwikverma/deathwatch/internal/fetch"
	"github.com/ritwikverma/deathwatch/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "deathwatch",
	Short:   "Daily death-case collection from news feeds",
	Long:    "Deathwatch queries news feeds for death-related reporting, screens and extracts structured case records, and maintains an append-only record store.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(recordsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("deathwatch", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/deathwatch/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to adjust search topics, source codes, and limits.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show record store and run-ledger status",
	RunE: func(cmd *cobra.Command, args []string) error {
		records := store.Load(cfg.GetDataFile())
		fmt.Printf("Record store: %s\n", cfg.GetDataFile())
		fmt.Printf("  Records: %d\n", len(records))

		db, err := openLedger()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("reading ledger: %w", err)
		}
		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		fmt.Printf("  Accepted: %d\n", stats.TotalAccepted)
		fmt.Printf("  Appended: %d\n", stats.TotalAppended)
		if stats.LastRunDate != "" {
			fmt.Printf("  Last run date: %s\n", stats.LastRunDate)
		}
		return nil
	},
}

// --- run command ---

var (
	runDate     string
	runMinCases int
	runYes      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full collection pass for a target date",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resolveTargetDate(runDate)
		if err != nil {
			return err
		}
		if runMinCases > 0 {
			cfg.Limits.MinCasesPerRun = runMinCases
		}

		fmt.Printf("Collecting cases for %s (min %d)...\n", target, cfg.Limits.MinCasesPerRun)

		existing := store.Load(cfg.GetDataFile())
		fmt.Printf("Loaded %d prior records\n", len(existing))

		feeds := feed.NewClient(cfg.Feed, cfg.Fetch.UserAgent)
		pages := fetch.NewFetcher(cfg.Timeout(), cfg.Fetch.UserAgent)
		var robots collect.RobotsPolicy
		if cfg.RespectRobots() {
			robots = fetch.NewRobotsChecker(cfg.Fetch.UserAgent, cfg.Timeout())
		}

		started := time.Now()
		collector := collect.NewCollector(cfg, feeds, pages, robots)
		result := collector.Run(context.Background(), target, existing)

		appended, err := store.MergeAndSave(cfg.GetDataFile(), existing, result.Accepted)
		if err != nil {
			return fmt.Errorf("saving record store: %w", err)
		}

		recordRun(target, started, result, appended)

		fmt.Println("\nRun complete:")
		fmt.Printf("  Links tried: %d\n", result.LinksTried)
		if appended > 0 {
			fmt.Printf("  Collected %d, appended %d new records\n", len(result.Accepted), appended)
		} else {
			fmt.Println("  Collected 0, no changes")
		}

		if len(result.Skips) > 0 {
			fmt.Println("\nSkips by reason:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Skips {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "Target date (YYYY-MM-DD, default: prompt / today)")
	runCmd.Flags().IntVar(&runMinCases, "min-cases", 0, "Override minimum records to collect")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Skip the date prompt and use today")
}

// resolveTargetDate validates an explicit --date, or prompts for one when
// running interactively. A blank answer means today (UTC). An unparsable
// date aborts before any network activity.
func resolveTargetDate(explicit string) (string, error) {
	raw := explicit
	if raw == "" && !runYes && isTerminal(os.Stdin) {
		fmt.Print("Target date (YYYY-MM-DD, blank = today): ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		raw = strings.TrimSpace(answer)
	}

	if raw == "" {
		return time.Now().UTC().Format("2006-01-02"), nil
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return "", fmt.Errorf("invalid target date %q (want YYYY-MM-DD)", raw)
	}
	return parsed.Format("2006-01-02"), nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// recordRun writes the run outcome to the sqlite ledger. Ledger failures
// are logged, not fatal: the JSON store is the system of record.
func recordRun(target string, started time.Time, result *collect.Result, appended int) {
	db, err := openLedger()
	if err != nil {
		log.Printf("Run ledger unavailable: %v", err)
		return
	}
	defer db.Close()

	if _, err := db.InsertRun(target, started, result.LinksTried, len(result.Accepted), appended, result.Skips); err != nil {
		log.Printf("Failed to record run in ledger: %v", err)
	}
}

// --- records command ---

var recordsLimit int

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Print the most recently appended records as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		records := store.Load(cfg.GetDataFile())
		if len(records) > recordsLimit {
			records = records[len(records)-recordsLimit:]
		}
		if records == nil {
			records = []store.CaseRecord{}
		}

		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding records: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	recordsCmd.Flags().IntVar(&recordsLimit, "limit", 15, "Maximum number of records to print")
}

func openLedger() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "deathwatch.db"))
}
