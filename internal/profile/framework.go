package profile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
)

// railsMarker identifies a Rails application class in config/application.rb.
const railsMarker = "Rails::Application"

func analyzeFramework(root string) FrameworkProfile {
	return FrameworkProfile{
		Ruby:       analyzeRuby(root),
		TypeScript: analyzeTypeScript(root),
		JavaScript: analyzeJavaScript(root),
		Rust:       analyzeRust(root),
		Go:         analyzeGo(root),
		Python:     analyzePython(root),
	}
}

func analyzeRuby(root string) RubyProfile {
	p := RubyProfile{
		GemfileExists: exists(filepath.Join(root, "Gemfile")),
	}

	gemspecs, _ := filepath.Glob(filepath.Join(root, "*.gemspec"))
	p.GemspecExists = len(gemspecs) > 0
	p.IsGem = p.GemspecExists

	if content, err := os.ReadFile(filepath.Join(root, "config", "application.rb")); err == nil {
		p.IsRailsApp = strings.Contains(string(content), railsMarker)
	}
	return p
}

func analyzeTypeScript(root string) TypeScriptProfile {
	tsconfig := exists(filepath.Join(root, "tsconfig.json"))
	return TypeScriptProfile{HasTypeScript: tsconfig, TSConfigExists: tsconfig}
}

func analyzeJavaScript(root string) JavaScriptProfile {
	pkg := exists(filepath.Join(root, "package.json"))
	return JavaScriptProfile{
		HasJavaScript:     pkg,
		PackageJSONExists: pkg,
		NodeModulesExists: isDir(filepath.Join(root, "node_modules")),
	}
}

func analyzeRust(root string) RustProfile {
	path := filepath.Join(root, "Cargo.toml")
	cargo := exists(path)
	p := RustProfile{HasRust: cargo, CargoTomlExists: cargo}
	if cargo {
		var manifest struct {
			Package struct {
				Name string `toml:"name"`
			} `toml:"package"`
		}
		if _, err := toml.DecodeFile(path, &manifest); err == nil {
			p.CrateName = manifest.Package.Name
		}
	}
	return p
}

func analyzeGo(root string) GoProfile {
	content, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return GoProfile{GoModExists: exists(filepath.Join(root, "go.mod"))}
	}
	return GoProfile{
		HasGo:       true,
		GoModExists: true,
		ModulePath:  modfile.ModulePath(content),
	}
}

func analyzePython(root string) PythonProfile {
	p := PythonProfile{
		PyprojectExists:    exists(filepath.Join(root, "pyproject.toml")),
		RequirementsExists: exists(filepath.Join(root, "requirements.txt")),
	}
	p.HasPython = p.PyprojectExists || p.RequirementsExists
	if p.PyprojectExists {
		p.ProjectName = pyprojectName(filepath.Join(root, "pyproject.toml"))
	}
	return p
}

// pyprojectName reads the PEP 621 name, falling back to Poetry's table.
func pyprojectName(path string) string {
	var manifest struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.DecodeFile(path, &manifest); err != nil {
		return ""
	}
	if manifest.Project.Name != "" {
		return manifest.Project.Name
	}
	return manifest.Tool.Poetry.Name
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
