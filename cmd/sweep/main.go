package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"sweep-go/internal/app"
	"sweep-go/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp creates a wired App from the default config path. The caller
// must defer a.Close(). operation identifies the CLI command being run
// (e.g. "Scan", "Run").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	a, err := app.NewApp(defaults["config_path"], operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Folder retention and S3 sync daemon",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Data Dir:       %s\n", cfg.DataDir)
		fmt.Printf("Check Interval: %dm\n", cfg.CheckIntervalMinutes)
		fmt.Printf("Schedule:       enabled=%v entries=%d\n", cfg.ScheduleEnabled, len(cfg.Schedules))
		fmt.Printf("Watch Folders:  %d\n", len(cfg.WatchFolders))
		fmt.Printf("Rules:          %d\n", len(cfg.Rules))
		fmt.Printf("Sync Rules:     %d\n", len(cfg.SyncRules))
		fmt.Printf("Buckets:        %d\n", len(cfg.Buckets))
		return nil
	},
}

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage watched folders",
}

var folderAddCmd = &cobra.Command{
	Use:   "add [PATH]",
	Short: "Watch a folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}
		absTarget, err := filepath.Abs(target)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		if err := a.Store.AddWatchFolder(absTarget); err != nil {
			return fmt.Errorf("adding folder: %w", err)
		}

		fmt.Printf("Watching folder: %s\n", absTarget)
		return nil
	},
}

var folderRemoveCmd = &cobra.Command{
	Use:   "remove PATH",
	Short: "Stop watching a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveFolder")
		if err != nil {
			return err
		}
		defer a.Close()

		absTarget, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		if err := a.Store.RemoveWatchFolder(absTarget); err != nil {
			return fmt.Errorf("removing folder: %w", err)
		}

		fmt.Printf("No longer watching: %s\n", absTarget)
		return nil
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListFolders")
		if err != nil {
			return err
		}
		defer a.Close()

		folders := a.Store.WatchFolders()
		if len(folders) == 0 {
			fmt.Println("No watched folders.")
			return nil
		}
		for _, f := range folders {
			fmt.Println(f)
		}
		return nil
	},
}

// rule command
var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage retention rules",
}

var ruleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retention rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListRules")
		if err != nil {
			return err
		}
		defer a.Close()

		rules := a.Store.Rules()
		if len(rules) == 0 {
			fmt.Println("No retention rules.")
			return nil
		}
		for i, r := range rules {
			mode := "trash"
			if r.PermanentDelete {
				mode = "permanent"
			}
			state := "enabled"
			if !r.IsEnabled() {
				state = "disabled"
			}
			fmt.Printf("#%d  %-20s  %s:%-20s  max-age:%s  keep:%d  %s  %s\n",
				i,
				r.Name,
				r.PatternType,
				r.Pattern,
				r.MaxAge(),
				r.KeepLatest,
				mode,
				state,
			)
		}
		return nil
	},
}

// bucket command
var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Manage S3 buckets",
}

var bucketAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add an S3 bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint, _ := cmd.Flags().GetString("endpoint")
		region, _ := cmd.Flags().GetString("region")
		accessKey, _ := cmd.Flags().GetString("access-key")

		// The secret never goes through argv.
		fmt.Fprint(os.Stderr, "Secret key: ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading secret key: %w", err)
		}

		a, err := newApp("AddBucket")
		if err != nil {
			return err
		}
		defer a.Close()

		bucket := config.S3Bucket{
			Name:      args[0],
			Endpoint:  endpoint,
			AccessKey: accessKey,
			SecretKey: strings.TrimSpace(string(secret)),
			Region:    region,
		}
		if err := a.Store.AddBucket(bucket); err != nil {
			return fmt.Errorf("adding bucket: %w", err)
		}

		fmt.Printf("Added bucket: %s\n", bucket.Name)
		return nil
	},
}

var bucketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List S3 buckets",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListBuckets")
		if err != nil {
			return err
		}
		defer a.Close()

		buckets := a.Store.Buckets()
		if len(buckets) == 0 {
			fmt.Println("No buckets configured.")
			return nil
		}
		for _, b := range buckets {
			endpoint := b.Endpoint
			if endpoint == "" {
				endpoint = "(aws)"
			}
			fmt.Printf("%-20s  %-40s  %s\n", b.Name, endpoint, b.Region)
		}
		return nil
	},
}

var bucketCheckCmd = &cobra.Command{
	Use:   "check NAME",
	Short: "Verify bucket access",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CheckBucket")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := a.CheckBucket(ctx, args[0]); err != nil {
			return fmt.Errorf("bucket check failed: %w", err)
		}
		fmt.Printf("Bucket %s: OK\n", args[0])
		return nil
	},
	Args: cobra.ExactArgs(1),
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan watched folders and delete stale files now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Scan")
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.ScanAndClean()

		fmt.Printf("Scanned %d file(s), deleted %d\n", result.TotalScanned, len(result.Deleted))
		for _, d := range result.Deleted {
			fmt.Printf("  deleted: %s\n", d)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  error: %s\n", e)
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d error(s) during scan", len(result.Errors))
		}
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Manage folder sync",
}

var syncListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sync rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListSyncRules")
		if err != nil {
			return err
		}
		defer a.Close()

		rules := a.Store.SyncRules()
		if len(rules) == 0 {
			fmt.Println("No sync rules.")
			return nil
		}
		for i, r := range rules {
			cadence := fmt.Sprintf("every %dm", r.IntervalMinutes)
			if r.ScheduleType == config.ScheduleByDay {
				cadence = fmt.Sprintf("%s at %s", strings.Join(r.ScheduleDays, ","), r.ScheduleTime)
			}
			last := "never"
			if t, ok := r.LastSyncTime(); ok {
				last = t.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("#%d  %-20s  bucket:%-20s  %-24s  last:%s\n",
				i, r.Name, r.BucketName, cadence, last)
		}
		return nil
	},
}

var syncNowCmd = &cobra.Command{
	Use:   "now INDEX",
	Short: "Run a sync rule immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid rule index: %s", args[0])
		}

		a, err := newApp("SyncNow")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.RunSyncNow(index) {
			return fmt.Errorf("no sync rule at index %d", index)
		}

		// The rule runs in the background; poll the tracker until it
		// finishes so the command exits with the work done.
		for {
			time.Sleep(200 * time.Millisecond)
			busy := false
			for _, t := range a.ActiveTasks() {
				if !t.Done {
					busy = true
				}
			}
			if !busy {
				break
			}
		}

		fmt.Println("Sync complete.")
		return nil
	},
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		a, err := newApp("Run")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.StartMonitoring(); err != nil {
			return fmt.Errorf("starting monitors: %w", err)
		}
		if metricsAddr != "" {
			a.ServeMetrics(metricsAddr)
		}

		fmt.Println("sweep running. Ctrl-C to stop.")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		fmt.Println("Shutting down.")
		return nil
	},
}

// tasks command
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Show active tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Tasks")
		if err != nil {
			return err
		}
		defer a.Close()

		tasks := a.ActiveTasks()
		if len(tasks) == 0 {
			fmt.Println("No active tasks.")
			return nil
		}
		for _, t := range tasks {
			fmt.Printf("%-8s  %-30s  %3d%%  %d/%d files  %s\n",
				t.Kind, t.Name, t.Progress, t.ProcessedFiles, t.TotalFiles, t.Status)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.RecentRuns(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond)
			fmt.Printf("%s  %-5s  %-20s  scanned:%d  deleted:%d  synced:%d  errors:%d  %s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Kind,
				r.Rule,
				r.Scanned,
				r.Deleted,
				r.Synced,
				r.Errors,
				duration,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// folder subcommands
	folderCmd.AddCommand(folderAddCmd)
	folderCmd.AddCommand(folderRemoveCmd)
	folderCmd.AddCommand(folderListCmd)

	// rule subcommands
	ruleCmd.AddCommand(ruleListCmd)

	// bucket subcommands
	bucketCmd.AddCommand(bucketAddCmd)
	bucketAddCmd.Flags().String("endpoint", "", "Custom S3-compatible endpoint (empty for AWS)")
	bucketAddCmd.Flags().String("region", "us-east-1", "Bucket region")
	bucketAddCmd.Flags().String("access-key", "", "Access key ID")
	bucketCmd.AddCommand(bucketListCmd)
	bucketCmd.AddCommand(bucketCheckCmd)

	// sync subcommands
	syncCmd.AddCommand(syncListCmd)
	syncCmd.AddCommand(syncNowCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(ruleCmd)
	rootCmd.AddCommand(bucketCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.AddCommand(tasksCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
