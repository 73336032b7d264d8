package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/attnd/internal/folder"
	"github.com/fyrsmithlabs/attnd/internal/metadata"
)

var (
	// metaFolder is the folder root for metadata commands
	metaFolder string
	// metaAttributes and metaPriorities hold key=value pairs merged into the
	// stored entry
	metaAttributes []string
	metaPriorities []string
	// metaFacets replaces the stored facets when non-nil
	metaFacets []string
)

func init() {
	rootCmd.AddCommand(metaCmd)
	metaCmd.AddCommand(metaGetCmd)
	metaCmd.AddCommand(metaSetCmd)
	metaCmd.AddCommand(metaDumpCmd)
	metaCmd.AddCommand(metaImportCmd)

	metaCmd.PersistentFlags().StringVarP(&metaFolder, "folder", "C", ".", "folder root holding the metadata")

	metaSetCmd.Flags().StringArrayVar(&metaAttributes, "attr", nil, "attribute to set (key=value, repeatable)")
	metaSetCmd.Flags().StringArrayVar(&metaPriorities, "priority", nil, "priority to set (key=value, repeatable)")
	metaSetCmd.Flags().StringSliceVar(&metaFacets, "facet", nil, `facets to store, replacing existing ones ("" clears them)`)
}

// metaCmd is the parent command for metadata operations
var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Read and write per-file attention metadata",
	Long: `Read and write the attention metadata of files in a folder.

Metadata lives in attention_dump.json at the folder root or, for older
folders, in the .as directory's Attributes.ini and Priorities.ini.

Examples:
  # Show a file's metadata
  attn meta get src/main.go

  # Set attributes on a file in another folder
  attn meta set -C ~/src/project README.md --attr owner=docs --priority review=high

  # Print the whole metadata document
  attn meta dump`,
}

var metaGetCmd = &cobra.Command{
	Use:   "get <file>",
	Short: "Show one file's merged metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetaGet,
}

var metaSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Merge attributes, priorities and facets into one file's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetaSet,
}

var metaDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the folder's whole metadata document as JSON",
	Args:  cobra.NoArgs,
	RunE:  runMetaDump,
}

var metaImportCmd = &cobra.Command{
	Use:   "import <file.json|->",
	Short: "Replace the folder's metadata dump with a JSON document",
	Long: `Replace attention_dump.json with the given JSON document, read from a
file or from stdin when the argument is "-". The .as directory is left as is.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetaImport,
}

// metaRoot opens the --folder root.
func metaRoot(cmd *cobra.Command) (*folder.Service, folder.Root, error) {
	svc, err := newFolders()
	if err != nil {
		return nil, folder.Root{}, err
	}
	root, err := svc.OpenRoot(cmd.Context(), metaFolder)
	if err != nil {
		return nil, folder.Root{}, err
	}
	return svc, root, nil
}

func runMetaGet(cmd *cobra.Command, args []string) error {
	svc, root, err := metaRoot(cmd)
	if err != nil {
		return err
	}

	md, err := svc.FileMetadata(cmd.Context(), root, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !styled(out) {
		return writeJSON(out, md)
	}
	fmt.Fprintln(out, renderFileMetadata(md))
	return nil
}

func runMetaSet(cmd *cobra.Command, args []string) error {
	if len(metaAttributes) == 0 && len(metaPriorities) == 0 && metaFacets == nil {
		return fmt.Errorf("nothing to set: use --attr, --priority or --facet")
	}
	attributes, err := parsePairs("--attr", metaAttributes)
	if err != nil {
		return err
	}
	priorities, err := parsePairs("--priority", metaPriorities)
	if err != nil {
		return err
	}

	svc, root, err := metaRoot(cmd)
	if err != nil {
		return err
	}

	current, err := svc.FileMetadata(cmd.Context(), root, args[0])
	if err != nil {
		return err
	}

	entry := metadata.Entry{
		Attributes: current.Attributes,
		Priorities: current.Priorities,
		Facets:     current.Facets,
	}
	for k, v := range attributes {
		entry.Attributes[k] = v
	}
	for k, v := range priorities {
		entry.Priorities[k] = v
	}
	if metaFacets != nil {
		entry.Facets = metaFacets
	}

	if err := svc.UpdateMetadata(cmd.Context(), root, args[0], entry); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated metadata for %s\n", args[0])
	return nil
}

// parsePairs splits key=value flag values.
func parsePairs(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%s %q: want key=value", flag, v)
		}
		out[key] = value
	}
	return out, nil
}

func runMetaDump(cmd *cobra.Command, args []string) error {
	svc, root, err := metaRoot(cmd)
	if err != nil {
		return err
	}

	snap, err := svc.AllMetadata(cmd.Context(), root)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), snap)
}

func runMetaImport(cmd *cobra.Command, args []string) error {
	var (
		content []byte
		err     error
	)
	if args[0] == "-" {
		content, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}

	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return fmt.Errorf("invalid JSON document: %w", err)
	}

	svc, root, err := metaRoot(cmd)
	if err != nil {
		return err
	}
	if err := svc.ReplaceAllMetadata(cmd.Context(), root, data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Replaced metadata in %s\n", root.Path())
	return nil
}

// renderFileMetadata formats one file's metadata for a terminal.
func renderFileMetadata(md *metadata.FileMetadata) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(md.FilePath))
	b.WriteString("\n")
	if !md.HasMetadata {
		b.WriteString(dimStyle.Render("  no metadata"))
		b.WriteString("\n")
	}

	section := func(name string, values map[string]string) {
		if len(values) == 0 {
			return
		}
		b.WriteString(sectionStyle.Render(name))
		b.WriteString("\n")
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			row(&b, k, valueStyle.Render(values[k]))
		}
	}
	section("Attributes", md.Attributes)
	section("Priorities", md.Priorities)

	if len(md.Facets) > 0 {
		b.WriteString(sectionStyle.Render("Facets"))
		b.WriteString("\n  ")
		b.WriteString(valueStyle.Render(strings.Join(md.Facets, ", ")))
		b.WriteString("\n")
	}
	for _, w := range md.Warnings {
		b.WriteString(dimStyle.Render("  warning: " + w))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
