// Package config provides the process-wide, read-only view of typed
// settings with "{KEY}" interpolation, loaded once from a local YAML
// file overlaying built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigCyclic is returned when "{KEY}" interpolation exceeds MaxResolveDepth.
var ErrConfigCyclic = errors.New("config: cyclic or too-deep interpolation")

// MaxResolveDepth bounds "{KEY}" interpolation recursion.
const MaxResolveDepth = 8

var interpolationPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Config is the resolved, read-only settings view. Construct via Load.
type Config struct {
	values map[string]string

	// StartupFlapWindowMin/Max and StartupFlapRatio expose the magic
	// numbers from Recorder.checkFatalAtStartup as config, per spec.md §9.
	StartupFlapWindowMin float64
	StartupFlapWindowMax float64
	StartupFlapRatio     float64
}

// defaults mirrors the original cablewatch.config.Config class attributes.
func defaults() map[string]string {
	return map[string]string{
		"WEB_LISTENADDR":            "0.0.0.0",
		"WEB_PORT":                  "8000",
		"WEB_ROOTDIR":               "{PROJECT_DIR}/www",
		"LOGS_DIR":                  "{PROJECT_DIR}/logs",
		"INGEST_DATADIR":            "{PROJECT_DIR}/data/ingest",
		"INGEST_YOUTUBE_STREAM_URL": "",
		"PROJECT_DIR":               ".",
		"YT_DLP_EXTRA_ARGS":         "",
		"TIMEZONE":                  "UTC",
		"DATABASE_PATH":             "{PROJECT_DIR}/data/transcripts.db",
		"GCP_PROJECT_ID":            "",
		"GCP_BUCKET_NAME":           "",
		"GCP_SERVICE_ACCOUNT":       "",
		"ROADMAP_HACKMD_URL":        "",
	}
}

// isConfigAttrName reports whether name is an upper-case config identifier,
// matching the original's Config._is_conf_attr_name.
func isConfigAttrName(name string) bool {
	if name == "" || strings.HasPrefix(name, "_") {
		return false
	}
	return name == strings.ToUpper(name)
}

// Load reads and parses the YAML configuration file at path (if it
// exists — a missing file is not an error, the built-in defaults apply)
// and returns a resolved Config. Interpolation is NOT performed eagerly;
// Get resolves lazily.
func Load(path string) (*Config, error) {
	values := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			var raw map[string]any
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
			for k, v := range raw {
				if !isConfigAttrName(k) {
					continue
				}
				values[k] = fmt.Sprintf("%v", v)
			}
		}
	}

	return &Config{
		values:               values,
		StartupFlapWindowMin: 5,
		StartupFlapWindowMax: 10,
		StartupFlapRatio:     0.6,
	}, nil
}

// Get resolves the named option, recursively interpolating any "{KEY}"
// references up to MaxResolveDepth. Returns ErrConfigCyclic if exceeded.
func (c *Config) Get(name string) (string, error) {
	return c.resolve(name, []string{name})
}

// MustGet is Get but panics on error — used for options the caller knows
// to be acyclic (all built-in defaults are).
func (c *Config) MustGet(name string) string {
	v, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

func (c *Config) resolve(name string, chain []string) (string, error) {
	if len(chain) > MaxResolveDepth {
		return "", fmt.Errorf("%w: %s", ErrConfigCyclic, strings.Join(chain, " -> "))
	}
	value, ok := c.values[name]
	if !ok {
		return "", nil
	}
	matches := interpolationPattern.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return value, nil
	}
	out := value
	for _, m := range matches {
		key := m[1]
		if !isConfigAttrName(key) {
			continue
		}
		resolved, err := c.resolve(key, append(append([]string{}, chain...), key))
		if err != nil {
			return "", err
		}
		out = strings.ReplaceAll(out, "{"+key+"}", resolved)
	}
	return out, nil
}

// Location resolves TIMEZONE into a *time.Location, for the Scheduler's
// cron evaluator.
func (c *Config) Location() (*time.Location, error) {
	name, err := c.Get("TIMEZONE")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// AsMap resolves every recognized option and returns a flattened view,
// useful for diagnostics/CLI `config` output.
func (c *Config) AsMap() (map[string]string, error) {
	out := make(map[string]string, len(c.values))
	for k := range c.values {
		v, err := c.Get(k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
