package envcfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melvinsat/melvinctl/internal/errors"
)

func TestResolveMinimal(t *testing.T) {
	cfg, err := Resolve(map[string]string{
		VarBaseURL: "http://10.100.10.3:33000",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://10.100.10.3:33000", cfg.BaseURL())
	assert.Equal(t, []string{"DRS_BASE_URL=http://10.100.10.3:33000"}, cfg.Environ())
}

func TestResolveRejectsUnknownToggle(t *testing.T) {
	_, err := Resolve(map[string]string{
		VarBaseURL:     "http://10.100.10.3:33000",
		"MELVIN_DEBUG": "1",
	})
	require.Error(t, err)

	var derr *errors.DeployError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, errors.ErrCodeConfigUnknownToggle, derr.Code)
}

func TestResolveRequiresBaseURL(t *testing.T) {
	_, err := Resolve(map[string]string{
		VarExportOrbit: "1",
	})
	require.Error(t, err)

	var derr *errors.DeployError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, errors.ErrCodeConfigMissingURL, derr.Code)
}

func TestResolveBaseURLValidation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		ok   bool
	}{
		{"plain http", "http://10.100.10.3:33000", true},
		{"https", "https://drs.example.org", true},
		{"missing scheme", "10.100.10.3:33000", false},
		{"wrong scheme", "ftp://10.100.10.3", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(map[string]string{VarBaseURL: tt.url})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestResolveFlagValues(t *testing.T) {
	_, err := Resolve(map[string]string{
		VarBaseURL:   "http://10.100.10.3:33000",
		VarSkipReset: "true",
	})
	require.Error(t, err, "flags only accept the literal value 1")

	cfg, err := Resolve(map[string]string{
		VarBaseURL:   "http://10.100.10.3:33000",
		VarSkipReset: "1",
	})
	require.NoError(t, err)
	assert.True(t, cfg.Enabled(VarSkipReset))
	assert.False(t, cfg.Enabled(VarExportOrbit))
}

func TestSkipObjectivesRoundTrip(t *testing.T) {
	cfg, err := Resolve(map[string]string{
		VarBaseURL:        "http://10.100.10.3:33000",
		VarSkipObjectives: "1,3,15",
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 15}, cfg.SkipObjectives())
	assert.Equal(t, "1,3,15", FormatObjectiveList(cfg.SkipObjectives()))
	assert.Contains(t, cfg.Environ(), "SKIP_OBJ=1,3,15")
}

func TestParseObjectiveListErrors(t *testing.T) {
	for _, bad := range []string{"", "1,,3", "1,x,3", "1, 2.5", ","} {
		_, err := ParseObjectiveList(bad)
		assert.Error(t, err, "input %q should be rejected", bad)
	}

	ids, err := ParseObjectiveList(" 1, 3 ,15")
	require.NoError(t, err, "surrounding whitespace is tolerated")
	assert.Equal(t, []int{1, 3, 15}, ids)
}

func TestEnvironOrderIsStable(t *testing.T) {
	values := map[string]string{
		VarBaseURL:        "http://10.100.10.3:33000",
		VarTrackMelvinPos: "1",
		VarExportOrbit:    "1",
		VarSkipObjectives: "7",
		VarBacktrace:      "1",
	}

	cfg, err := Resolve(values)
	require.NoError(t, err)

	want := []string{
		"DRS_BASE_URL=http://10.100.10.3:33000",
		"RUST_BACKTRACE=1",
		"EXPORT_ORBIT=1",
		"SKIP_OBJ=7",
		"TRACK_MELVIN_POS=1",
	}

	// Map iteration order must not leak into the serialized form.
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, cfg.Environ())
	}
}

func TestCollect(t *testing.T) {
	environ := []string{
		"PATH=/usr/bin",
		"DRS_BASE_URL=http://10.100.10.3:33000",
		"EXPORT_ORBIT=1",
		"PULL_FULL=1",
		"HOME=/root",
	}

	values := Collect(environ)
	assert.Equal(t, map[string]string{
		"DRS_BASE_URL": "http://10.100.10.3:33000",
		"EXPORT_ORBIT": "1",
	}, values)
}

func TestExactEnvironmentForDeploy(t *testing.T) {
	cfg, err := Resolve(map[string]string{
		VarBaseURL:     "http://10.0.0.1:9000",
		VarExportOrbit: "1",
	})
	require.NoError(t, err)

	env := cfg.Environ()
	assert.Len(t, env, 2)
	assert.Equal(t, []string{
		"DRS_BASE_URL=http://10.0.0.1:9000",
		"EXPORT_ORBIT=1",
	}, env)
}
