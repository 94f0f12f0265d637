package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultInput() *Input {
	return &Input{
		contextDir:  ".",
		dockerfile:  "Dockerfile",
		schedule:    "0 4 * * *",
		cpu:         "0.25",
		memory:      "0.5Gi",
		registrySKU: "Basic",
	}
}

func clearRunEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RESOURCE_GROUP", "LOCATION", "ACR_NAME", "ENV_NAME", "JOB_NAME", "IMAGE_TAG"} {
		t.Setenv(key, "")
	}
}

func TestResolveConfigFlagsOverrideEnvironment(t *testing.T) {
	clearRunEnv(t)
	t.Setenv("RESOURCE_GROUP", "env-rg")
	t.Setenv("ACR_NAME", "envacr")

	input := defaultInput()
	input.resourceGroup = "flag-rg"
	input.envs = []string{"NIGHTLY_MODE=full"}

	cfg, err := resolveConfig(input)
	require.NoError(t, err)

	assert.Equal(t, "flag-rg", cfg.ResourceGroup)
	assert.Equal(t, "envacr", cfg.ACRName)
	assert.Equal(t, "canadacentral", cfg.Location)
	assert.Equal(t, "full", cfg.JobEnv["NIGHTLY_MODE"])
	assert.Equal(t, "/workspace/ls-spec", cfg.JobEnv["LS_SPEC_ROOT"])
}

func TestResolveConfigRejectsPlaceholderWithoutTTY(t *testing.T) {
	clearRunEnv(t)

	_, err := resolveConfig(defaultInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder")
}

func TestResolveConfigBuildArgs(t *testing.T) {
	clearRunEnv(t)
	t.Setenv("ACR_NAME", "nightacr")

	input := defaultInput()
	input.buildArgs = []string{"GO_VERSION=1.23", "NIGHTLY=1"}

	cfg, err := resolveConfig(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GO_VERSION": "1.23", "NIGHTLY": "1"}, cfg.BuildArgs)
}
