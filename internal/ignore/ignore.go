// Package ignore provides gitignore-aware path matching for folder trees.
package ignore

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultFiles are the ignore files read from a folder root.
var DefaultFiles = []string{".gitignore"}

// Matcher reports whether a root-relative path is ignored.
type Matcher struct {
	rules *gitignore.GitIgnore
	lines []string
}

// Parser reads gitignore-style files from a folder root.
type Parser struct {
	// IgnoreFiles is the list of ignore file names to look for.
	IgnoreFiles []string

	// ExtraPatterns are appended after the file patterns.
	ExtraPatterns []string
}

// NewParser creates a parser. Nil ignoreFiles selects DefaultFiles.
func NewParser(ignoreFiles, extraPatterns []string) *Parser {
	if ignoreFiles == nil {
		ignoreFiles = DefaultFiles
	}
	return &Parser{
		IgnoreFiles:   ignoreFiles,
		ExtraPatterns: extraPatterns,
	}
}

// Load reads every configured ignore file under root and compiles the
// combined rules. Missing files are skipped. A root without any rules yields
// a matcher that ignores nothing.
func (p *Parser) Load(root string) (*Matcher, error) {
	var lines []string

	for _, name := range p.IgnoreFiles {
		fileLines, err := readLines(filepath.Join(root, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		lines = append(lines, fileLines...)
	}

	for _, extra := range p.ExtraPatterns {
		if line := parseLine(extra); line != "" {
			lines = append(lines, line)
		}
	}

	return Compile(deduplicate(lines)...), nil
}

// Compile builds a matcher from gitignore lines.
func Compile(lines ...string) *Matcher {
	if len(lines) == 0 {
		return &Matcher{}
	}
	return &Matcher{
		rules: gitignore.CompileIgnoreLines(lines...),
		lines: lines,
	}
}

// Patterns returns the compiled lines in order.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.lines
}

// Match reports whether rel (slash-separated, relative to the folder root)
// is ignored. Directory-only patterns such as "build/" need isDir.
func (m *Matcher) Match(rel string, isDir bool) bool {
	if m == nil || m.rules == nil || rel == "" || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir && m.rules.MatchesPath(rel+"/") {
		return true
	}
	return m.rules.MatchesPath(rel)
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := parseLine(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// parseLine trims a gitignore line and returns "" for blanks and comments.
// Negations are kept; the matcher understands them.
func parseLine(line string) string {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	return line
}

// deduplicate removes duplicate patterns while preserving order.
func deduplicate(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}
