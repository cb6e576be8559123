package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kebairia/mcutil/internal/backup"
)

var (
	backupType string
	backupName string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list, and delete server backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup of the server directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mgr := backup.NewManager(cfg, log, backup.WithProgress(printProgress))
		entry, err := mgr.Create(backup.Kind(backupType), backupName)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Printf("Backup saved as %s (%s, %d files)\n",
			entry.Filename, humanize.Bytes(uint64(entry.SizeBytes)), entry.FileCount)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mgr := backup.NewManager(cfg, log)
		printBackupList(mgr.Catalog().List())
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <backup>",
	Short: "Delete a backup by filename, name, or substring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mgr := backup.NewManager(cfg, log)
		entry, err := mgr.Catalog().Delete(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Deleted backup: %s\n", entry.Filename)
		return nil
	},
}

var backupInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show backup listing and statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mgr := backup.NewManager(cfg, log)
		printBackupList(mgr.Catalog().List())
		printBackupStats(mgr.Catalog().Stats(), cfg.Backup.Dir)
		return nil
	},
}

func printProgress(p backup.Progress, current string) {
	filePct, bytePct := 0.0, 0.0
	if p.FilesTotal > 0 {
		filePct = 100 * float64(p.FilesDone) / float64(p.FilesTotal)
	}
	if p.BytesTotal > 0 {
		bytePct = 100 * float64(p.BytesDone) / float64(p.BytesTotal)
	}
	line := fmt.Sprintf("  Progress: %d/%d files (%.1f%%) | %s/%s (%.1f%%)",
		p.FilesDone, p.FilesTotal, filePct,
		humanize.Bytes(uint64(p.BytesDone)), humanize.Bytes(uint64(p.BytesTotal)), bytePct)
	if current != "" {
		if len(current) > 50 {
			current = "..." + current[len(current)-47:]
		}
		line += " | " + current
	}
	fmt.Printf("\r%s", line)
}

func printBackupList(entries []backup.Entry) {
	if len(entries) == 0 {
		fmt.Println("No backups found")
		return
	}
	fmt.Println("\nAvailable Backups")
	currentBucket := ""
	for _, e := range entries {
		if e.Bucket != currentBucket {
			currentBucket = e.Bucket
			fmt.Printf("\n%s\n", currentBucket)
		}
		fmt.Printf("  %s\n", e.Filename)
		fmt.Printf("    Type: %s - %s\n", e.Kind, e.Description)
		fmt.Printf("    Size: %s (%d files)\n", humanize.Bytes(uint64(e.SizeBytes)), e.FileCount)
		fmt.Printf("    Created: %s\n", e.CreatedAt.Format("15:04:05"))
		if e.CustomName != "" {
			fmt.Printf("    Custom name: %s\n", e.CustomName)
		}
	}
}

func printBackupStats(stats backup.Stats, dir string) {
	fmt.Println("\nBackup Statistics")
	fmt.Printf("Total backups: %d\n", stats.Total)
	for kind, count := range stats.ByKind {
		fmt.Printf("%s backups: %d\n", kind, count)
	}
	fmt.Printf("Backup days: %d\n", stats.BackupDays)
	fmt.Printf("Total size: %s\n", humanize.Bytes(uint64(stats.TotalSize)))
	if !stats.Latest.IsZero() {
		fmt.Printf("Latest: %s\n", stats.Latest.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Backup directory: %s\n", dir)
}

func init() {
	backupCreateCmd.Flags().
		StringVarP(&backupType, "type", "t", string(backup.KindQuick), "backup type (quick or full)")
	backupCreateCmd.Flags().
		StringVarP(&backupName, "name", "n", "", "custom backup name")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	backupCmd.AddCommand(backupInfoCmd)
}
