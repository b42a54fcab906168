// Package ci models the two pipelines around the builder: build and
// release on every push, docs rendering and publishing on pushes to
// main. Workflows render to GitHub Actions YAML; the concurrency
// invariant (one docs publish in flight, newer runs cancel older) is
// implemented in Coordinator and mirrored in the rendered config.
package ci

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/melvinsat/melvinctl/internal/errors"
)

// DocsConcurrencyGroup is the single group all docs-publish runs share.
const DocsConcurrencyGroup = "docs-publish"

// Workflow is a renderable CI pipeline definition.
type Workflow struct {
	Name        string            `yaml:"name"`
	On          Triggers          `yaml:"on"`
	Permissions map[string]string `yaml:"permissions,omitempty"`
	Concurrency *Concurrency      `yaml:"concurrency,omitempty"`
	Jobs        map[string]Job    `yaml:"jobs"`
}

// Triggers describes when a workflow runs.
type Triggers struct {
	Push *PushTrigger `yaml:"push,omitempty"`
}

// PushTrigger optionally narrows push events to branches or tags.
type PushTrigger struct {
	Branches []string `yaml:"branches,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

// Concurrency declares the workflow's concurrency group.
type Concurrency struct {
	Group            string `yaml:"group"`
	CancelInProgress bool   `yaml:"cancel-in-progress"`
}

// Job is one unit of a workflow with strict dependency ordering via
// Needs.
type Job struct {
	RunsOn string   `yaml:"runs-on"`
	Needs  []string `yaml:"needs,omitempty"`
	If     string   `yaml:"if,omitempty"`
	Steps  []Step   `yaml:"steps"`
}

// Step is a single action or shell invocation.
type Step struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
}

// BuildReleaseWorkflow builds on every push and publishes a release
// only on tag pushes, strictly after the same run's build succeeded.
func BuildReleaseWorkflow() *Workflow {
	return &Workflow{
		Name: "build",
		On:   Triggers{Push: &PushTrigger{}},
		Jobs: map[string]Job{
			"build": {
				RunsOn: "ubuntu-latest",
				Steps: []Step{
					{Uses: "actions/checkout@v4"},
					{Name: "Install target", Run: "rustup target add x86_64-unknown-linux-gnu"},
					{Name: "Build", Run: "cargo build --release --target x86_64-unknown-linux-gnu"},
					{
						Name: "Upload artifact",
						Uses: "actions/upload-artifact@v4",
						With: map[string]string{
							"name": "melvin-ob",
							"path": "target/x86_64-unknown-linux-gnu/release/melvin-ob",
						},
					},
				},
			},
			"release": {
				RunsOn: "ubuntu-latest",
				Needs:  []string{"build"},
				If:     "startsWith(github.ref, 'refs/tags/')",
				Steps: []Step{
					{
						Uses: "actions/download-artifact@v4",
						With: map[string]string{"name": "melvin-ob"},
					},
					{
						Name: "Publish release",
						Uses: "softprops/action-gh-release@v2",
						With: map[string]string{"files": "melvin-ob"},
					},
				},
			},
		},
	}
}

// DocsWorkflow renders and publishes documentation on pushes to main.
// All runs share one concurrency group; a newer run cancels an
// in-progress older one.
func DocsWorkflow() *Workflow {
	return &Workflow{
		Name: "docs",
		On:   Triggers{Push: &PushTrigger{Branches: []string{"main"}}},
		Permissions: map[string]string{
			"contents": "read",
			"pages":    "write",
			"id-token": "write",
		},
		Concurrency: &Concurrency{
			Group:            DocsConcurrencyGroup,
			CancelInProgress: true,
		},
		Jobs: map[string]Job{
			"publish": {
				RunsOn: "ubuntu-latest",
				Steps: []Step{
					{Uses: "actions/checkout@v4"},
					{Name: "Render docs", Run: "cargo doc --no-deps --target-dir docs-build"},
					{
						Name: "Inject landing redirect",
						Run:  `echo '<meta http-equiv="refresh" content="0; url=melvin_ob/index.html">' > docs-build/doc/index.html`,
					},
					{
						Uses: "actions/upload-pages-artifact@v3",
						With: map[string]string{"path": "docs-build/doc"},
					},
					{Name: "Publish", Uses: "actions/deploy-pages@v4"},
				},
			},
		},
	}
}

// Render serializes the workflow to YAML.
func (w *Workflow) Render() ([]byte, error) {
	data, err := yaml.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCIRenderFailed,
			fmt.Sprintf("could not render workflow %q", w.Name), err)
	}
	return data, nil
}

// fileHeader marks the written files as generated. It must stay in
// sync with the checked-in workflows so regeneration is a no-op.
const fileHeader = "# Generated by `melvinctl workflows generate`. Edit internal/ci instead.\n"

// WriteAll renders both shipped workflows into dir, each prefixed with
// the generated-file header.
func WriteAll(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileWriteError,
			fmt.Sprintf("could not create %s", dir), err)
	}

	files := map[string]*Workflow{
		"build-release.yml": BuildReleaseWorkflow(),
		"docs.yml":          DocsWorkflow(),
	}

	var written []string
	for name, wf := range files {
		data, err := wf.Render()
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0o644); err != nil {
			return written, errors.Wrap(errors.ErrCodeFileWriteError,
				fmt.Sprintf("could not write %s", path), err)
		}
		written = append(written, path)
	}
	return written, nil
}
