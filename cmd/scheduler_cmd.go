package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kebairia/mcutil/internal/backup"
	"github.com/kebairia/mcutil/internal/scheduler"
	"github.com/kebairia/mcutil/internal/session"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run automatic backups on an interval",
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the backup scheduler in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mgr := backup.NewManager(cfg, log)

		backupFn := func() error {
			name := "scheduled_" + time.Now().Format("20060102_150405")
			_, err := mgr.Create(backup.KindQuick, name)
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return scheduler.New(cfg.Scheduler.Interval, backupFn, log).Run(ctx)
	},
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler in a detached session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sessions := session.NewScreenManager(log)
		name := cfg.Scheduler.SessionName
		if sessions.Exists(name) {
			log.Warn("backup scheduler is already running", "session", name)
			return nil
		}

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		if err := sessions.Create(name, cfg.Server.Dir,
			exe, "scheduler", "run", "--config", configFile); err != nil {
			return err
		}
		fmt.Printf("Backup scheduler started in session %q\n", name)
		fmt.Printf("View with: screen -r %s\n", name)
		return nil
	},
}

var schedulerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the detached scheduler session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sessions := session.NewScreenManager(log)
		name := cfg.Scheduler.SessionName
		if !sessions.Exists(name) {
			log.Warn("backup scheduler is not running", "session", name)
			return nil
		}
		if err := sessions.Terminate(name); err != nil {
			return err
		}
		fmt.Println("Backup scheduler stopped")
		return nil
	},
}

var schedulerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler status and backup statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sessions := session.NewScreenManager(log)
		name := cfg.Scheduler.SessionName

		fmt.Println("\nBackup Scheduler Status")
		if sessions.Exists(name) {
			fmt.Println("Scheduler: RUNNING")
			fmt.Printf("Screen session: %s\n", name)
			fmt.Printf("Backup interval: %s\n", cfg.Scheduler.Interval)
		} else {
			fmt.Println("Scheduler: STOPPED")
			fmt.Println("Start with: mcutil scheduler start")
		}

		mgr := backup.NewManager(cfg, log)
		printBackupStats(mgr.Catalog().Stats(), cfg.Backup.Dir)
		return nil
	},
}

func init() {
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerStopCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}
