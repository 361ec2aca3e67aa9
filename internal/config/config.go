// Package config resolves the settings of the outline command from JSON
// files with comments, the environment and command line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/outline/pkg/directive"
	"github.com/calvinalkan/outline/pkg/outline"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrIndexDirEmpty      = errors.New("index_dir cannot be empty")
	ErrInvalidID          = errors.New("id must not contain whitespace or ':'")
	ErrUnknownLanguage    = errors.New("unknown language")
	ErrInvalidWidth       = errors.New("width must not be zero")
)

// Config holds all configuration options.
type Config struct {
	// ID is the session id used in new gnxs. Empty picks a random one per
	// process.
	ID string `json:"id,omitempty"`

	// DefaultLanguage applies to files whose extension and directives name
	// no language.
	DefaultLanguage string `json:"default_language,omitempty"`

	// Encoding, when set, overrides @encoding directives on save.
	Encoding string `json:"encoding,omitempty"`

	// IndexDir holds the index database, relative to the working directory
	// unless absolute.
	IndexDir string `json:"index_dir"`

	// Extensions limits indexing to these file extensions. Empty means all
	// extensions with a known language.
	Extensions []string `json:"extensions,omitempty"`

	PageWidth int `json:"page_width,omitempty"`
	TabWidth  int `json:"tab_width,omitempty"`

	// HistoryFile is where the shell keeps its history. Empty disables it.
	HistoryFile string `json:"history_file,omitempty"`

	EffectiveCwd string `json:"-"`
	IndexDirAbs  string `json:"-"`

	Sources Sources `json:"-"`
}

// Sources records which config files were loaded.
type Sources struct {
	Global  string
	Project string
}

// FileName is the project config file looked up in the working directory.
const FileName = ".outline.json"

// Default returns the configuration used when no file sets anything.
func Default() Config {
	return Config{
		IndexDir:  ".outline",
		PageWidth: directive.DefaultPageWidth,
		TabWidth:  directive.DefaultTabWidth,
	}
}

// globalPath returns $XDG_CONFIG_HOME/outline/config.json, falling back to
// ~/.config. It is empty when neither variable is set.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "outline", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "outline", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd; empty means os.Getwd
	ConfigPath      string            // -c/--config
	Overrides       Config            // flag values; zero fields are ignored
	Env             map[string]string // environment
}

// Load resolves the configuration. Later sources win:
//  1. defaults
//  2. global config ($XDG_CONFIG_HOME/outline/config.json)
//  3. project config (.outline.json in the working directory), or the
//     file named by --config instead
//  4. flag overrides
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		global, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, global)
			cfg.Sources.Global = path
		}
	}

	path, mustExist := filepath.Join(workDir, FileName), false

	if input.ConfigPath != "" {
		path, mustExist = input.ConfigPath, true

		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
	}

	project, loaded, err := loadFile(path, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, project)
		cfg.Sources.Project = path
	}

	cfg = merge(cfg, input.Overrides)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir
	cfg.IndexDirAbs = cfg.IndexDir

	if !filepath.IsAbs(cfg.IndexDir) {
		cfg.IndexDirAbs = filepath.Join(workDir, cfg.IndexDir)
	}

	if strings.HasPrefix(cfg.HistoryFile, "~/") && input.Env["HOME"] != "" {
		cfg.HistoryFile = filepath.Join(input.Env["HOME"], cfg.HistoryFile[2:])
	}

	return cfg, nil
}

// loadFile reads one config file. A missing optional file is not loaded
// and not an error.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case mustExist && errors.Is(err, os.ErrNotExist):
			return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		case mustExist:
			return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
		case errors.Is(err, os.ErrNotExist):
			return Config{}, false, nil
		default:
			return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
		}
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

// Parse decodes a JSON-with-comments config file. An index_dir that is
// present but empty is rejected here, since merging cannot tell it from an
// absent one.
func Parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	if v, ok := raw["index_dir"]; ok {
		if s, isString := v.(string); isString && s == "" {
			return Config{}, ErrIndexDirEmpty
		}
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.ID != "" {
		base.ID = overlay.ID
	}

	if overlay.DefaultLanguage != "" {
		base.DefaultLanguage = overlay.DefaultLanguage
	}

	if overlay.Encoding != "" {
		base.Encoding = overlay.Encoding
	}

	if overlay.IndexDir != "" {
		base.IndexDir = overlay.IndexDir
	}

	if overlay.Extensions != nil {
		base.Extensions = slices.Clone(overlay.Extensions)
	}

	if overlay.PageWidth != 0 {
		base.PageWidth = overlay.PageWidth
	}

	if overlay.TabWidth != 0 {
		base.TabWidth = overlay.TabWidth
	}

	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}

	return base
}

// Validate checks a merged configuration.
func Validate(cfg Config) error {
	if cfg.IndexDir == "" {
		return ErrIndexDirEmpty
	}

	if cfg.ID != "" && !outline.ValidGNX(cfg.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidID, cfg.ID)
	}

	if cfg.DefaultLanguage != "" && !directive.KnownLanguage(cfg.DefaultLanguage) {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, cfg.DefaultLanguage)
	}

	if cfg.PageWidth == 0 || cfg.TabWidth == 0 {
		return ErrInvalidWidth
	}

	return nil
}

// Indexed reports whether files at path are picked up by the indexer.
func (c Config) Indexed(path string) bool {
	ext := filepath.Ext(path)

	if len(c.Extensions) > 0 {
		return slices.ContainsFunc(c.Extensions, func(e string) bool {
			return strings.EqualFold(strings.TrimPrefix(e, "."), strings.TrimPrefix(ext, "."))
		})
	}

	_, ok := directive.LanguageForPath(path)

	return ok
}

// Format renders cfg as indented JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}
