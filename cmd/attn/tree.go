package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/disiqueira/gotree/v3"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/attnd/internal/tree"
)

// watch redraws the tree on filesystem changes
var watch bool

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().BoolVarP(&watch, "watch", "w", false, "redraw the tree when the folder changes")
}

// treeCmd prints a folder tree
var treeCmd = &cobra.Command{
	Use:   "tree [folder]",
	Short: "Print a folder's file tree",
	Long: `Print the file tree of a folder. Dependency and build directories
(.git, node_modules, tmp, log, coverage, .bundle, vendor/bundle) are skipped.

Examples:
  # Print the current directory
  attn tree

  # Skip .gitignore matches and print JSON
  attn tree ~/src/project --gitignore --json

  # Keep redrawing as files change (Ctrl-C to stop)
  attn tree --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

func runTree(cmd *cobra.Command, args []string) error {
	svc, err := newFolders()
	if err != nil {
		return err
	}
	root, err := openRoot(cmd, svc, args)
	if err != nil {
		return err
	}

	if watch {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watchTree(ctx, svc, root, cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	res, err := svc.Tree(cmd.Context(), root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, res)
	}
	fmt.Fprint(out, renderTree(res.Tree))
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", w.Path, w.Reason)
	}
	return nil
}

// renderTree draws the tree with directories suffixed by a slash.
func renderTree(root *tree.Node) string {
	visual := gotree.New(root.Path)
	addChildren(visual, root)
	return visual.Print()
}

func addChildren(parent gotree.Tree, n *tree.Node) {
	for _, child := range n.Children {
		if child.IsDir() {
			addChildren(parent.Add(child.Name+"/"), child)
			continue
		}
		parent.Add(child.Name)
	}
}
