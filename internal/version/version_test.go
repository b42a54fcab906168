package version

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Commit, info.Commit)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}

func TestInfoSerializesSnakeCase(t *testing.T) {
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Contains(t, out, "go_version")
	assert.Contains(t, out, "platform")
}

func TestStringShortensCommit(t *testing.T) {
	info := Info{
		Version:   "1.2.3",
		Commit:    "abcdef0123456789",
		Date:      "2026-08-01",
		GoVersion: "go1.24",
		Platform:  "linux/amd64",
	}

	s := info.String()
	assert.True(t, strings.Contains(s, "abcdef01"), "commit should be shortened: %s", s)
	assert.False(t, strings.Contains(s, "abcdef0123456789"), "full commit should not appear: %s", s)
	assert.Contains(t, s, "melvinctl 1.2.3")
}
