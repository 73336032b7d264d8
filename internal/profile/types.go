package profile

// Profile is a point-in-time snapshot of a folder. It is recomputed on every
// analysis and never persisted.
type Profile struct {
	Git       GitProfile       `json:"git_profile"`
	Framework FrameworkProfile `json:"framework_profile"`
	Metadata  MetadataProfile  `json:"metadata_profile"`
}

// GitProfile describes the folder's repository, if any.
type GitProfile struct {
	HasGit        bool     `json:"has_git"`
	HasBranches   bool     `json:"has_branches"`
	HasCommits    bool     `json:"has_commits"`
	Branches      []string `json:"branches"`
	CurrentBranch *string  `json:"current_branch"`
	CommitCount   int      `json:"commit_count"`
}

func defaultGitProfile() GitProfile {
	return GitProfile{Branches: []string{}}
}

// FrameworkProfile groups the per-ecosystem marker checks.
type FrameworkProfile struct {
	Ruby       RubyProfile       `json:"ruby"`
	TypeScript TypeScriptProfile `json:"typescript"`
	JavaScript JavaScriptProfile `json:"javascript"`
	Rust       RustProfile       `json:"rust"`
	Go         GoProfile         `json:"go"`
	Python     PythonProfile     `json:"python"`
}

type RubyProfile struct {
	IsGem         bool `json:"is_gem"`
	IsRailsApp    bool `json:"is_rails_app"`
	GemfileExists bool `json:"gemfile_exists"`
	GemspecExists bool `json:"gemspec_exists"`
}

type TypeScriptProfile struct {
	HasTypeScript  bool `json:"has_typescript"`
	TSConfigExists bool `json:"tsconfig_exists"`
}

type JavaScriptProfile struct {
	HasJavaScript     bool `json:"has_javascript"`
	PackageJSONExists bool `json:"package_json_exists"`
	NodeModulesExists bool `json:"node_modules_exists"`
}

// RustProfile reports a Cargo package. CrateName is read from
// [package].name and omitted when Cargo.toml does not parse.
type RustProfile struct {
	HasRust         bool   `json:"has_rust"`
	CargoTomlExists bool   `json:"cargo_toml_exists"`
	CrateName       string `json:"crate_name,omitempty"`
}

// GoProfile reports a Go module. ModulePath is empty when go.mod has no
// module directive.
type GoProfile struct {
	HasGo       bool   `json:"has_go"`
	GoModExists bool   `json:"go_mod_exists"`
	ModulePath  string `json:"module_path,omitempty"`
}

type PythonProfile struct {
	HasPython          bool   `json:"has_python"`
	PyprojectExists    bool   `json:"pyproject_exists"`
	RequirementsExists bool   `json:"requirements_exists"`
	ProjectName        string `json:"project_name,omitempty"`
}

// MetadataProfile reports which metadata formats are present. Contents are
// not validated.
type MetadataProfile struct {
	HasMetadata     bool    `json:"has_metadata"`
	HasMetadataDump bool    `json:"has_metadata_dump"`
	AsDirectoryPath *string `json:"as_directory_path"`
	DumpFilePath    *string `json:"dump_file_path"`
}
