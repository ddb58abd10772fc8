package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fsindex/fsindex/internal/indexactor"
)

var treeMaxDepth int

func init() {
	Root.AddCommand(treeCommand)
	treeCommand.Flags().IntVar(&treeMaxDepth, "max-depth", 0, "limit tree to this many levels below root (0 = unlimited)")
}

var treeCommand = &cobra.Command{
	Use:   "tree <root>",
	Short: "Render a root's indexed tree as a directory listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newManager()
		if err != nil {
			return err
		}
		defer m.Close()

		node, err := m.Tree(args[0], ignorePaths, treeMaxDepth)
		if err != nil {
			return err
		}
		return writeTree(os.Stdout, node)
	},
}

// writeTree renders the classic tree(1) box-drawing format: a leading
// "/" header line, "├── "/"└── " branches with "│   "/"    "
// continuation prefixes for nested levels, a blank line, then a
// "N directories, M files" footer.
func writeTree(w io.Writer, root indexactor.TreeNode) error {
	fmt.Fprintln(w, "/")
	dirs, files := 0, 0
	writeChildren(w, root.Children, "", &dirs, &files)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d directories, %d files\n", dirs, files)
	return nil
}

func writeChildren(w io.Writer, children []indexactor.TreeNode, prefix string, dirs, files *int) {
	sorted := append([]indexactor.TreeNode(nil), children...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i, child := range sorted {
		last := i == len(sorted)-1
		branch, nextPrefix := "├── ", prefix+"│   "
		if last {
			branch, nextPrefix = "└── ", prefix+"    "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, branch, child.Name)
		if child.IsDir {
			*dirs++
			writeChildren(w, child.Children, nextPrefix, dirs, files)
		} else {
			*files++
		}
	}
}
