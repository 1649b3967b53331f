package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/config"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/log"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/probe"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/state"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/supervisor"
	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const defaultConfigFile = "~/.openclaw/watchdog.conf"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "Watchdog - reliability supervisor for the OpenClaw gateway",
	Long: `Watchdog supervises a long-running OpenClaw gateway: it watches
liveness, HTTP health, network reachability and configuration
integrity, restarts the gateway when signals diverge from healthy, and
makes every configuration change reversible through a commit-confirmed
rollback window.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Watchdog version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", defaultConfigFile, "Path to the KEY=value watchdog config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the --config flag and applies CLI overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.ExpandHome(path))
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// initLogging configures the global logger from config. The long-lived
// start command logs to the rotated state-dir file; one-shot commands
// stay on the console.
func initLogging(cfg *config.Config, longRunning bool) {
	logCfg := log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	}
	if longRunning {
		file := cfg.LogFile
		if file == "" {
			file = state.NewPaths(cfg.StateDir).LogFile()
		}
		logCfg.File = file
	}
	log.Init(logCfg)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the supervisor in the foreground",
	Long: `Start the watchdog tick loop and supervise the gateway until
interrupted. Exits non-zero when another watchdog already holds the pid
file. Daemonization belongs to the launch manifest, not to this
process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		initLogging(cfg, true)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sup := supervisor.New(cfg, probe.NewSystem())
		return sup.Run(ctx)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal the running supervisor to exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		paths := state.NewPaths(cfg.StateDir)

		pid, err := state.ReadPidFile(paths.PidFile())
		if err != nil {
			return err
		}
		if pid == 0 || !state.PidAlive(pid) {
			fmt.Println("Watchdog is not running")
			return nil
		}
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			return fmt.Errorf("signalling pid %d: %w", pid, err)
		}
		fmt.Printf("Sent SIGTERM to watchdog (pid %d)\n", pid)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show supervisor, gateway, safeguard and backup state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		initLogging(cfg, false)
		return printStatus(cmd.Context(), cfg)
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Accept the pending configuration change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		initLogging(cfg, false)

		sup := supervisor.New(cfg, probe.NewSystem())
		confirmed, err := sup.Safeguard().Confirm()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Nothing armed; no pending config change")
			return nil
		}
		fmt.Println("Config change confirmed")
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback [snapshot-path]",
	Short: "Restore the gateway config from a snapshot",
	Long: `Roll the gateway configuration back and restart the gateway.
Without an argument the armed ticket's snapshot is used, else the
newest retained snapshot. Exits non-zero when no snapshot is
available.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		initLogging(cfg, false)

		snapshotPath := ""
		if len(args) == 1 {
			snapshotPath = args[0]
		}

		sup := supervisor.New(cfg, probe.NewSystem())
		if err := sup.Safeguard().Rollback(cmd.Context(), snapshotPath); err != nil {
			return err
		}
		fmt.Println("Config rolled back, gateway restart requested")
		return nil
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Take a manual snapshot of the gateway config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		initLogging(cfg, false)

		sup := supervisor.New(cfg, probe.NewSystem())
		path, err := sup.Safeguard().Snapshot(types.SnapshotReasonManual)
		if err != nil {
			return err
		}
		fmt.Printf("Snapshot written: %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Watchdog version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}

// printStatus renders the human-readable status sections
func printStatus(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths := state.NewPaths(cfg.StateDir)

	fmt.Println("Supervisor:")
	fmt.Printf("  State dir:   %s\n", paths.Root)
	pid, err := state.ReadPidFile(paths.PidFile())
	switch {
	case err != nil:
		fmt.Printf("  Running:     unknown (%v)\n", err)
	case pid != 0 && state.PidAlive(pid):
		fmt.Printf("  Running:     yes (pid %d)\n", pid)
	default:
		fmt.Println("  Running:     no")
	}

	sampler := probe.NewSampler(probe.NewSystem(), probe.Endpoints{
		HealthURL:      cfg.HealthCheckURL,
		PingTarget:     cfg.PingTarget,
		PingTimeout:    cfg.PingTimeout,
		ExternalURL:    cfg.DiscordCheckURL,
		ProxyURL:       cfg.ProxyURL,
		ProxyProbeURL:  cfg.LLMAPICheckURL,
		ProcessPattern: cfg.ProcessPattern,
		ServiceLabel:   cfg.ServiceLabel,
	})

	fmt.Println("\nGateway:")
	fmt.Printf("  Service:     %s\n", cfg.ServiceLabel)
	fmt.Printf("  Process:     %s\n", yesNo(sampler.Liveness(), "running", "not found"))
	fmt.Printf("  HTTP:        %s\n", yesNo(sampler.HTTPHealthy(ctx), "healthy", "unhealthy"))
	fmt.Printf("  Network:     %s\n", yesNo(sampler.Online(ctx), "online", "offline"))
	fmt.Printf("  External:    %s\n", yesNo(sampler.ExternalReachable(ctx), "reachable", "unreachable"))
	if cfg.ProxyURL != "" {
		fmt.Printf("  Proxy:       %s\n", yesNo(sampler.ProxyOK(ctx), "ok", "degraded"))
	}

	sup := supervisor.New(cfg, probe.NewSystem())
	sg, err := sup.Safeguard().Status()
	if err != nil {
		return err
	}
	fmt.Println("\nConfig safeguard:")
	fmt.Printf("  Config:      %s\n", cfg.ConfigPath)
	if sg.ChecksumPrefix == "" {
		fmt.Println("  Checksum:    not recorded yet")
	} else {
		fmt.Printf("  Checksum:    %s\n", sg.ChecksumPrefix)
	}
	if sg.Armed {
		remaining := time.Until(sg.Deadline).Round(time.Second)
		if remaining < 0 {
			remaining = 0
		}
		fmt.Printf("  Armed:       yes, %s until auto-confirm\n", remaining)
	} else {
		fmt.Println("  Armed:       no")
	}
	fmt.Printf("  Snapshots:   %d", sg.SnapshotCount)
	if sg.LatestSnapshot != "" {
		fmt.Printf(" (latest %s)", sg.LatestSnapshot)
	}
	fmt.Println()

	bk, err := sup.Backup().Status()
	if err != nil {
		return err
	}
	fmt.Println("\nBackup archiver:")
	if !bk.Configured {
		fmt.Println("  Configured:  no")
		return nil
	}
	fmt.Printf("  Generations: %d\n", bk.Generations)
	if !bk.LastRun.IsZero() {
		fmt.Printf("  Last run:    %s (%d files)\n", bk.LastRun.Format(time.RFC3339), bk.LastFiles)
	} else {
		fmt.Println("  Last run:    never")
	}
	return nil
}

func yesNo(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
