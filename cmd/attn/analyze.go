package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/attnd/internal/profile"
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

// analyzeCmd profiles a folder
var analyzeCmd = &cobra.Command{
	Use:   "analyze [folder]",
	Short: "Profile a folder's version control, frameworks and metadata",
	Long: `Profile a folder: git branches and commits, language and framework
manifests, and which attention metadata formats are present.

Output is styled on a terminal and JSON otherwise.

Examples:
  # Profile the current directory
  attn analyze

  # Profile a project as JSON
  attn analyze ~/src/project --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

// Lipgloss styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	yesStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)
)

func runAnalyze(cmd *cobra.Command, args []string) error {
	svc, err := newFolders()
	if err != nil {
		return err
	}
	root, err := openRoot(cmd, svc, args)
	if err != nil {
		return err
	}

	p, err := svc.Analyze(cmd.Context(), root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !styled(out) {
		return writeJSON(out, struct {
			FolderPath string           `json:"folder_path"`
			Analysis   *profile.Profile `json:"analysis"`
		}{root.Path(), p})
	}
	_, err = fmt.Fprintln(out, renderProfile(root.Path(), p))
	return err
}

// renderProfile formats a profile for a terminal.
func renderProfile(path string, p *profile.Profile) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(path))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Git"))
	b.WriteString("\n")
	if !p.Git.HasGit {
		b.WriteString(dimStyle.Render("  not a repository"))
		b.WriteString("\n")
	} else {
		branch := "detached"
		if p.Git.CurrentBranch != nil {
			branch = *p.Git.CurrentBranch
		}
		row(&b, "Branch", valueStyle.Render(branch))
		row(&b, "Branches", valueStyle.Render(fmt.Sprint(len(p.Git.Branches))))
		row(&b, "Commits", valueStyle.Render(fmt.Sprint(p.Git.CommitCount)))
	}

	b.WriteString(sectionStyle.Render("Frameworks"))
	b.WriteString("\n")
	detected := frameworks(p.Framework)
	if len(detected) == 0 {
		b.WriteString(dimStyle.Render("  none detected"))
		b.WriteString("\n")
	}
	for _, name := range detected {
		row(&b, name, yesStyle.Render("✓"))
	}
	for _, name := range []struct{ label, value string }{
		{"Go module", p.Framework.Go.ModulePath},
		{"Crate", p.Framework.Rust.CrateName},
		{"Python project", p.Framework.Python.ProjectName},
	} {
		if name.value != "" {
			row(&b, name.label, valueStyle.Render(name.value))
		}
	}

	b.WriteString(sectionStyle.Render("Metadata"))
	b.WriteString("\n")
	row(&b, "Dump", presence(p.Metadata.DumpFilePath))
	row(&b, ".as directory", presence(p.Metadata.AsDirectoryPath))

	return strings.TrimRight(b.String(), "\n")
}

func row(b *strings.Builder, label, value string) {
	b.WriteString("  ")
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func presence(path *string) string {
	if path == nil {
		return dimStyle.Render("absent")
	}
	return valueStyle.Render(*path)
}

// frameworks lists detected languages in a fixed order.
func frameworks(f profile.FrameworkProfile) []string {
	var names []string
	if f.Ruby.IsRailsApp {
		names = append(names, "Rails")
	} else if f.Ruby.IsGem {
		names = append(names, "Ruby gem")
	} else if f.Ruby.GemfileExists {
		names = append(names, "Ruby")
	}
	if f.TypeScript.HasTypeScript {
		names = append(names, "TypeScript")
	}
	if f.JavaScript.HasJavaScript {
		names = append(names, "JavaScript")
	}
	if f.Rust.HasRust {
		names = append(names, "Rust")
	}
	if f.Go.HasGo {
		names = append(names, "Go")
	}
	if f.Python.HasPython {
		names = append(names, "Python")
	}
	return names
}
