package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fsindex/fsindex/internal/search"
)

var (
	searchKind          string
	searchIncludeHidden bool
	searchCaseSensitive bool
	searchMaxResults    int
	searchMaxDepth      int
)

func init() {
	Root.AddCommand(searchCommand)
	flags := searchCommand.Flags()
	flags.StringVar(&searchKind, "kind", "any", "restrict results to \"files\", \"directories\", or \"any\"")
	flags.BoolVar(&searchIncludeHidden, "hidden", false, "include dotfiles and dot-directories")
	flags.BoolVar(&searchCaseSensitive, "case-sensitive", false, "match names and extensions case-sensitively")
	flags.IntVar(&searchMaxResults, "max-results", 100, "cap on the number of returned entries (1-500)")
	flags.IntVar(&searchMaxDepth, "max-depth", -1, "limit search to this many levels below root (negative = unlimited)")
}

var searchCommand = &cobra.Command{
	Use:   "search <root> <query>",
	Short: "Run a query against a root's index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, query := args[0], args[1]

		kind, err := parseKindFilter(searchKind)
		if err != nil {
			return err
		}

		m, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		result, err := m.Search(root, query, kind, searchIncludeHidden, searchCaseSensitive, searchMaxResults, searchMaxDepth, ignorePaths, nil)
		if err != nil {
			return err
		}

		printSearchResult(result)
		return nil
	},
}

func parseKindFilter(s string) (search.KindFilter, error) {
	switch s {
	case "", "any":
		return search.KindAny, nil
	case "files", "file":
		return search.KindFiles, nil
	case "directories", "directory", "dirs", "dir":
		return search.KindDirectories, nil
	default:
		return search.KindAny, fmt.Errorf("unknown --kind %q: want files, directories, or any", s)
	}
}

func printSearchResult(r *search.Result) {
	for _, e := range r.Entries {
		fmt.Fprintln(os.Stdout, e.Path)
	}
	if r.Truncated {
		fmt.Fprintf(os.Stderr, "(truncated, %d shown of more available)\n", r.Count)
	}
	fmt.Fprintf(os.Stderr, "%d matched, %d scanned, %d errors, index %s\n", r.Count, r.Scanned, r.Errors, r.IndexState)
}
