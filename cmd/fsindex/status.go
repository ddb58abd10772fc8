package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fsindex/fsindex/internal/indexactor"
)

func init() {
	Root.AddCommand(statusCommand)
}

var statusCommand = &cobra.Command{
	Use:   "status <root>",
	Short: "Show a root's index build status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		status, err := m.IndexStatus(args[0], ignorePaths)
		if err != nil {
			return err
		}
		printStatus(status)
		return nil
	},
}

func printStatus(s indexactor.IndexStatus) {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Root:\t%s\n", s.Root)
	fmt.Fprintf(w, "State:\t%s\n", s.State)
	fmt.Fprintf(w, "Indexed entries:\t%d\n", s.IndexedEntries)
	fmt.Fprintf(w, "Scanned files:\t%d\n", s.ScannedFiles)
	fmt.Fprintf(w, "Scanned directories:\t%d\n", s.ScannedDirs)
	fmt.Fprintf(w, "Errors:\t%d\n", s.Errors)
	fmt.Fprintf(w, "Watcher enabled:\t%v\n", s.WatcherEnabled)
	fmt.Fprintf(w, "Rescan count:\t%d\n", s.RescanCount)
	fmt.Fprintf(w, "Cache path:\t%s\n", s.CachePath)
	if s.LastError != "" {
		fmt.Fprintf(w, "Last error:\t%s\n", s.LastError)
	}
}
