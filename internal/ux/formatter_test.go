package ux

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(sample{Name: "melvin", Count: 3}))

	var out sample
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, sample{Name: "melvin", Count: 3}, out)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(sample{Name: "melvin", Count: 3}))

	var out sample
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, sample{Name: "melvin", Count: 3}, out)
}

func TestTextFormatterString(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("text", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format("deployment complete"))
	assert.Equal(t, "deployment complete\n", buf.String())
}

func TestTextFormatterStringSlice(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("text", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	env := []string{"DRS_BASE_URL=http://10.0.0.1:9000", "EXPORT_ORBIT=1"}
	require.NoError(t, f.Format(env))
	assert.Equal(t, "DRS_BASE_URL=http://10.0.0.1:9000\nEXPORT_ORBIT=1\n", buf.String())
}

func TestTextFormatterRejectsStructs(t *testing.T) {
	f, err := NewFormatter("text", nil)
	require.NoError(t, err)
	assert.Error(t, f.Format(sample{}))
}

func TestUnknownFormat(t *testing.T) {
	_, err := NewFormatter("xml", nil)
	assert.Error(t, err)
}
