package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <command>...",
	Short: "Send a raw command to the running server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sup, err := newSupervisor()
		if err != nil {
			return err
		}
		return sup.SendCommand(strings.Join(args, " "))
	},
}
