package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"

	"github.com/SmritiSatyan/garden/internal/log"
)

// ProjectFileNames are the file names FindProject looks for, in order.
var ProjectFileNames = []string{"garden.yml", "garden.yaml"}

var (
	nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

	ErrProjectNotFound = errors.New("no project file found")
	ErrActionNotFound  = errors.New("action not found")
)

// Action kinds.
const (
	KindBuild  = "build"
	KindDeploy = "deploy"
	KindTest   = "test"
	KindRun    = "run"
)

// Project is the top-level structure of a garden.yml file.
type Project struct {
	Name    string   `yaml:"name"`
	Sources []Source `yaml:"sources,omitempty"`
	Actions []Action `yaml:"actions,omitempty"`
	Helm    *Helm    `yaml:"helm,omitempty"`

	// Dir is the directory holding the project file. Relative paths in the
	// project resolve against it.
	Dir string `yaml:"-"`
}

// Source is a remote git repository checked out into the project.
type Source struct {
	Name          string `yaml:"name"`
	RepositoryURL string `yaml:"repository_url"`
	Path          string `yaml:"path,omitempty"` // defaults to .garden/sources/<name>
}

// Action is a command garden runs and supervises.
type Action struct {
	Name       string            `yaml:"name"`
	Kind       string            `yaml:"kind"`
	Command    string            `yaml:"command"`
	Env        map[string]string `yaml:"env,omitempty"`
	WorkingDir string            `yaml:"working_dir,omitempty"`
	Origin     string            `yaml:"origin,omitempty"`    // log origin, defaults to name
	LogLevel   string            `yaml:"log_level,omitempty"` // level of forwarded lines
	Readiness  *Readiness        `yaml:"readiness,omitempty"`
	Timeout    Duration          `yaml:"timeout,omitempty"` // exit-code mode only
}

// Readiness switches an action from exit-code detection to log-line detection.
type Readiness struct {
	SuccessLog  string   `yaml:"success_log"`
	ErrorLog    string   `yaml:"error_log,omitempty"`
	Timeout     Duration `yaml:"timeout,omitempty"`
	MatchStderr bool     `yaml:"match_stderr,omitempty"`
}

// Helm configures the helm command.
type Helm struct {
	Binary     string `yaml:"binary,omitempty"`
	Context    string `yaml:"context"`
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
	Namespace  string `yaml:"namespace,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling from strings like "10s", "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// LoadProject reads, parses and validates a project file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", path, err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing project %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving project %s: %w", path, err)
	}
	p.Dir = filepath.Dir(abs)

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating project %s: %w", path, err)
	}

	return &p, nil
}

// FindProject looks for a project file in dir and its parents and returns
// the path of the first one found.
func FindProject(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range ProjectFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrProjectNotFound
		}
		dir = parent
	}
}

// Action returns the action called name.
func (p *Project) Action(name string) (*Action, error) {
	for i := range p.Actions {
		if p.Actions[i].Name == name {
			return &p.Actions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrActionNotFound, name)
}

// SourcePath returns the absolute checkout directory of s.
func (p *Project) SourcePath(s Source) string {
	path := s.Path
	if path == "" {
		path = filepath.Join(".garden", "sources", s.Name)
	}
	return p.resolve(path)
}

// ActionDir returns the absolute working directory of a.
func (p *Project) ActionDir(a *Action) string {
	return p.resolve(a.WorkingDir)
}

func (p *Project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}

// Argv splits the action command into a program and its arguments, honoring
// shell quoting. Environment variables are not expanded.
func (a *Action) Argv() ([]string, error) {
	argv, err := shellwords.Parse(a.Command)
	if err != nil {
		return nil, fmt.Errorf("parsing command of action %q: %w", a.Name, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("action %q has an empty command", a.Name)
	}
	return argv, nil
}

// LogOrigin returns the origin label for the action's forwarded lines.
func (a *Action) LogOrigin() string {
	if a.Origin != "" {
		return a.Origin
	}
	return a.Name
}

// Validate checks that a project is well-formed.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !nameRe.MatchString(p.Name) {
		return fmt.Errorf("name %q is invalid: must match %s", p.Name, nameRe)
	}

	seen := make(map[string]bool)
	for i, s := range p.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if !nameRe.MatchString(s.Name) {
			return fmt.Errorf("sources[%d].name %q is invalid: must match %s", i, s.Name, nameRe)
		}
		if seen[s.Name] {
			return fmt.Errorf("source %q is defined more than once", s.Name)
		}
		seen[s.Name] = true
		if s.RepositoryURL == "" {
			return fmt.Errorf("source %q: repository_url is required", s.Name)
		}
	}

	seen = make(map[string]bool)
	for i := range p.Actions {
		a := &p.Actions[i]
		if a.Name == "" {
			return fmt.Errorf("actions[%d].name is required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("action %q is defined more than once", a.Name)
		}
		seen[a.Name] = true
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %q: %w", a.Name, err)
		}
	}

	if h := p.Helm; h != nil && h.Context == "" {
		return fmt.Errorf("helm.context is required")
	}

	return nil
}

// Validate checks a single action.
func (a *Action) Validate() error {
	if !nameRe.MatchString(a.Name) {
		return fmt.Errorf("name %q is invalid: must match %s", a.Name, nameRe)
	}

	switch a.Kind {
	case KindBuild, KindDeploy, KindTest, KindRun:
		// ok
	default:
		return fmt.Errorf("kind must be %q, %q, %q or %q, got %q",
			KindBuild, KindDeploy, KindTest, KindRun, a.Kind)
	}

	if a.Command == "" {
		return fmt.Errorf("command is required")
	}
	if _, err := a.Argv(); err != nil {
		return err
	}

	if a.LogLevel != "" {
		if _, err := log.GetLevel(a.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}

	if a.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	if r := a.Readiness; r != nil {
		if r.SuccessLog == "" {
			return fmt.Errorf("readiness.success_log is required")
		}
		if r.Timeout.Duration < 0 {
			return fmt.Errorf("readiness.timeout must not be negative")
		}
		if a.Timeout.Duration != 0 {
			return fmt.Errorf("timeout is not valid with readiness, use readiness.timeout")
		}
	}

	return nil
}
