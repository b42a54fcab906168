// Package envcfg resolves and validates the runtime environment
// configuration consumed by the onboard binary. The toggle table is a
// closed contract: the launched process recognizes exactly these
// variables, so anything else is rejected before a deployment touches
// the transport or session stages.
package envcfg

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/melvinsat/melvinctl/internal/errors"
)

// Recognized variable names.
const (
	VarBaseURL         = "DRS_BASE_URL"
	VarBacktrace       = "RUST_BACKTRACE"
	VarSkipReset       = "SKIP_RESET"
	VarExportOrbit     = "EXPORT_ORBIT"
	VarTryImportOrbit  = "TRY_IMPORT_ORBIT"
	VarLogMelvinEvents = "LOG_MELVIN_EVENTS"
	VarSkipObjectives  = "SKIP_OBJ"
	VarTrackMelvinPos  = "TRACK_MELVIN_POS"
)

// VarPullFull gates retrieval of the full snapshot. It is read by the
// retriever, never forwarded into the launched session.
const VarPullFull = "PULL_FULL"

// Kind describes how a toggle's value is validated.
type Kind int

const (
	// KindURL is a mandatory-by-table URL value
	KindURL Kind = iota
	// KindFlag accepts only the literal value "1"
	KindFlag
	// KindIntList accepts a comma-separated list of integers
	KindIntList
)

// ToggleSpec describes one recognized environment toggle.
type ToggleSpec struct {
	Name      string
	Kind      Kind
	Mandatory bool
	Effect    string
}

// Table is the authoritative toggle enumeration. Slice order defines
// the serialization order of Environ.
var Table = []ToggleSpec{
	{VarBaseURL, KindURL, true, "Base endpoint for the DRS backend."},
	{VarBacktrace, KindFlag, false, "Enables full diagnostic stack traces on fatal failure."},
	{VarSkipReset, KindFlag, false, "Skips the initial reset handshake with the backend."},
	{VarExportOrbit, KindFlag, false, "Periodically persists orbit state to orbit.bin."},
	{VarTryImportOrbit, KindFlag, false, "Attempts to load persisted orbit state on startup."},
	{VarLogMelvinEvents, KindFlag, false, "Enables verbose logging of inbound announcement messages."},
	{VarSkipObjectives, KindIntList, false, "IDs of objectives to skip during execution."},
	{VarTrackMelvinPos, KindFlag, false, "Enables position-tracking instrumentation."},
}

var specByName = func() map[string]ToggleSpec {
	m := make(map[string]ToggleSpec, len(Table))
	for _, s := range Table {
		m[s.Name] = s
	}
	return m
}()

// Config is an immutable, validated environment configuration.
type Config struct {
	baseURL        string
	flags          map[string]bool
	skipObjectives []int
}

// Resolve validates a flat name→value mapping against the toggle table.
// Unknown names, malformed values, and a missing DRS_BASE_URL all fail
// with a CONFIG error; the result is immutable.
func Resolve(values map[string]string) (*Config, error) {
	cfg := &Config{flags: make(map[string]bool)}

	for name, value := range values {
		spec, ok := specByName[name]
		if !ok {
			return nil, errors.NewUnknownToggleError(name)
		}

		switch spec.Kind {
		case KindURL:
			if err := validateBaseURL(value); err != nil {
				return nil, err
			}
			cfg.baseURL = value
		case KindFlag:
			if value != "1" {
				return nil, errors.New(errors.ErrCodeConfigBadValue,
					fmt.Sprintf("%s only accepts the value \"1\", got %q", name, value))
			}
			cfg.flags[name] = true
		case KindIntList:
			ids, err := ParseObjectiveList(value)
			if err != nil {
				return nil, err
			}
			cfg.skipObjectives = ids
		}
	}

	if cfg.baseURL == "" {
		return nil, errors.NewMissingBaseURLError()
	}

	return cfg, nil
}

func validateBaseURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigBadValue,
			fmt.Sprintf("%s is not a valid URL", VarBaseURL), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New(errors.ErrCodeConfigBadValue,
			fmt.Sprintf("%s must use http or https, got %q", VarBaseURL, value))
	}
	if u.Host == "" {
		return errors.New(errors.ErrCodeConfigBadValue,
			fmt.Sprintf("%s has no host component: %q", VarBaseURL, value))
	}
	return nil
}

// ParseObjectiveList parses a comma-separated list of objective IDs,
// preserving input order. Empty elements and non-integers are rejected.
func ParseObjectiveList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, errors.New(errors.ErrCodeConfigBadObjective,
				fmt.Sprintf("%s contains an empty element: %q", VarSkipObjectives, s))
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigBadObjective,
				fmt.Sprintf("%s element %q is not an integer", VarSkipObjectives, p), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FormatObjectiveList serializes objective IDs back to the comma form
// accepted by ParseObjectiveList.
func FormatObjectiveList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// BaseURL returns the mandatory backend endpoint.
func (c *Config) BaseURL() string {
	return c.baseURL
}

// Enabled reports whether a flag toggle was set.
func (c *Config) Enabled(name string) bool {
	return c.flags[name]
}

// SkipObjectives returns the objective IDs to skip, in input order.
func (c *Config) SkipObjectives() []int {
	out := make([]int, len(c.skipObjectives))
	copy(out, c.skipObjectives)
	return out
}

// Environ serializes the configuration as KEY=value pairs in table
// order, suitable for injecting into the launched process.
func (c *Config) Environ() []string {
	env := make([]string, 0, len(c.flags)+2)
	for _, spec := range Table {
		switch spec.Kind {
		case KindURL:
			env = append(env, spec.Name+"="+c.baseURL)
		case KindFlag:
			if c.flags[spec.Name] {
				env = append(env, spec.Name+"=1")
			}
		case KindIntList:
			if len(c.skipObjectives) > 0 {
				env = append(env, spec.Name+"="+FormatObjectiveList(c.skipObjectives))
			}
		}
	}
	return env
}

// Collect extracts the recognized toggles from a KEY=value environment
// slice (PULL_FULL excluded), for pass-through from the operator's
// shell into Resolve.
func Collect(environ []string) map[string]string {
	values := make(map[string]string)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, recognized := specByName[name]; recognized {
			values[name] = value
		}
	}
	return values
}
