package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kebairia/mcutil/internal/server"
	"github.com/kebairia/mcutil/internal/session"
)

var (
	serverGUI     bool
	serverMemory  string
	stopTimeout   time.Duration
	watchInterval time.Duration
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start, stop, and supervise the Minecraft server",
}

func newSupervisor(opts ...server.Option) (*server.Supervisor, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if serverMemory != "" {
		cfg.Server.JavaMemory = serverMemory
	}
	sessions := session.NewScreenManager(log)
	return server.NewSupervisor(cfg.Server, sessions, log, opts...), nil
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in a detached session",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []server.Option
		if serverGUI {
			opts = append(opts, server.WithGUI())
		}
		sup, err := newSupervisor(opts...)
		if err != nil {
			return err
		}
		return sup.Start(cmd.Context())
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the server gracefully",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := newSupervisor()
		if err != nil {
			return err
		}
		return sup.Stop(cmd.Context(), stopTimeout)
	},
}

var serverRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []server.Option
		if serverGUI {
			opts = append(opts, server.WithGUI())
		}
		sup, err := newSupervisor(opts...)
		if err != nil {
			return err
		}
		return sup.Restart(cmd.Context())
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := newSupervisor()
		if err != nil {
			return err
		}
		printServerStatus(sup.Status())
		return nil
	},
}

var serverWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the server and restart it if it goes down",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		interval := cfg.Watchdog.Interval
		if watchInterval > 0 {
			interval = watchInterval
		}
		sup, err := newSupervisor()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.NewWatchdog(sup, interval, log).Run(ctx)
	},
}

func printServerStatus(st server.Status) {
	fmt.Println("\nMinecraft Server Status")
	if st.Running {
		fmt.Println("Server: RUNNING")
	} else {
		fmt.Println("Server: STOPPED")
	}
	fmt.Printf("Screen session: %s\n", st.Session)
	fmt.Printf("Server directory: %s\n", st.Dir)
	fmt.Printf("Server jar: %s\n", st.Jar)
	fmt.Printf("Directory size: %s\n", humanize.Bytes(uint64(st.DirSize)))
	if st.Running && st.CPUPercent != "" {
		fmt.Printf("CPU usage: %s%%\n", st.CPUPercent)
		fmt.Printf("Memory usage: %s%%\n", st.MemPercent)
		fmt.Printf("Uptime: %s\n", st.Uptime)
	}
	if st.Running {
		fmt.Printf("Attach with: screen -r %s\n", st.Session)
	}
}

func init() {
	serverStartCmd.Flags().BoolVar(&serverGUI, "gui", false, "start with the server GUI")
	serverStartCmd.Flags().StringVar(&serverMemory, "memory", "", "override java memory setting")
	serverRestartCmd.Flags().BoolVar(&serverGUI, "gui", false, "start with the server GUI")
	serverRestartCmd.Flags().StringVar(&serverMemory, "memory", "", "override java memory setting")
	serverStopCmd.Flags().
		DurationVar(&stopTimeout, "timeout", 30*time.Second, "how long to wait for a graceful stop")
	serverWatchCmd.Flags().
		DurationVar(&watchInterval, "interval", 0, "override the watchdog check interval")

	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverRestartCmd)
	serverCmd.AddCommand(serverStatusCmd)
	serverCmd.AddCommand(serverWatchCmd)
}
