package ci

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestBuildReleaseWorkflow(t *testing.T) {
	wf := BuildReleaseWorkflow()

	release, ok := wf.Jobs["release"]
	require.True(t, ok)
	assert.Equal(t, []string{"build"}, release.Needs, "release must wait for the same run's build")
	assert.Contains(t, release.If, "refs/tags/", "release only runs on tag pushes")

	build, ok := wf.Jobs["build"]
	require.True(t, ok)
	assert.Empty(t, build.If, "build runs on every push")
	assert.Nil(t, wf.On.Push.Branches, "build triggers are not branch-scoped")
}

func TestDocsWorkflowConcurrency(t *testing.T) {
	wf := DocsWorkflow()

	require.NotNil(t, wf.Concurrency)
	assert.Equal(t, DocsConcurrencyGroup, wf.Concurrency.Group)
	assert.True(t, wf.Concurrency.CancelInProgress)

	assert.Equal(t, []string{"main"}, wf.On.Push.Branches)
}

func TestRenderRoundTrips(t *testing.T) {
	data, err := DocsWorkflow().Render()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))

	conc, ok := decoded["concurrency"].(map[string]any)
	require.True(t, ok, "concurrency block must survive rendering")
	assert.Equal(t, DocsConcurrencyGroup, conc["group"])
	assert.Equal(t, true, conc["cancel-in-progress"])
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "workflows")

	written, err := WriteAll(dir)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	for _, name := range []string{"build-release.yml", "docs.yml"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(string(data), fileHeader),
			"%s must carry the generated-file header", name)

		var decoded map[string]any
		assert.NoError(t, yaml.Unmarshal(data, &decoded), "%s must be valid YAML", name)
	}
}

// The committed workflow files must be exactly what generation writes,
// header included, so regenerating them never produces a diff header.
func TestCommittedWorkflowsCarryHeader(t *testing.T) {
	for _, name := range []string{"build-release.yml", "docs.yml"} {
		data, err := os.ReadFile(filepath.Join("..", "..", ".github", "workflows", name))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), fileHeader),
			"%s header out of sync with WriteAll", name)
	}
}
