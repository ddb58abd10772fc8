// Package main implements the fsindex CLI: a thin cobra front end
// over internal/manager.Manager exposing search/status/rescan/tree.
// Each subcommand registers itself onto the shared root command from
// its own file's init function.
package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fsindex/fsindex/internal/logx"
	"github.com/fsindex/fsindex/internal/manager"
)

var (
	cacheDir    string
	ignorePaths []string
	verbose     bool
)

// Root is the top-level command every subcommand attaches itself to.
var Root = &cobra.Command{
	Use:   "fsindex",
	Short: "Index and search a directory tree",
	Long: `fsindex builds and maintains an in-memory, on-disk-cached index
of a directory tree, keeps it current via filesystem watch events, and
answers boolean/wildcard/filter queries against it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logx.SetLevel(logx.LevelDebug)
		}
	},
}

func init() {
	addGlobalFlags(Root.PersistentFlags())
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "directory for snapshot caches and the sidecar database")
	flags.StringSliceVar(&ignorePaths, "ignore", nil, "directory to exclude from indexing (repeatable)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "fsindex")
	}
	return filepath.Join(os.TempDir(), "fsindex")
}

// newManager constructs a Manager rooted at the configured cache
// directory, shared by every subcommand's RunE.
func newManager() (*manager.Manager, error) {
	return manager.New(cacheDir)
}
