package main

import (
	"github.com/spf13/cobra"
)

func init() {
	Root.AddCommand(rescanCommand)
}

var rescanCommand = &cobra.Command{
	Use:   "rescan <root>",
	Short: "Force a full rebuild of a root's index and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		status, err := m.Rescan(args[0], ignorePaths)
		if err != nil {
			return err
		}
		printStatus(status)
		return nil
	},
}
