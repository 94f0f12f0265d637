package azure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leejad123/ls-azure-night-runner/pkg/common"
)

func TestResourceGroupExecutorArgs(t *testing.T) {
	runner := &fakeRunner{}

	err := NewResourceGroupExecutor(runner, "ls-night-runner-rg", "canadacentral")(context.Background())
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"group", "create",
		"--name", "ls-night-runner-rg",
		"--location", "canadacentral",
	}, runner.calls[0])
}

func TestRegistryExecutorArgs(t *testing.T) {
	runner := &fakeRunner{}

	err := NewRegistryExecutor(runner, "myacr", "ls-night-runner-rg", "Basic")(context.Background())
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"acr", "create",
		"--name", "myacr",
		"--resource-group", "ls-night-runner-rg",
		"--sku", "Basic",
		"--admin-enabled", "true",
	}, runner.calls[0])
}

func TestRegistryLoginExecutorArgs(t *testing.T) {
	runner := &fakeRunner{}

	err := NewRegistryLoginExecutor(runner, "myacr")(context.Background())
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"acr", "login", "--name", "myacr"}, runner.calls[0])
}

func TestEnvironmentExecutorArgs(t *testing.T) {
	runner := &fakeRunner{}

	err := NewEnvironmentExecutor(runner, "ls-night-runner-env", "ls-night-runner-rg", "canadacentral")(context.Background())
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"containerapp", "env", "create",
		"--name", "ls-night-runner-env",
		"--resource-group", "ls-night-runner-rg",
		"--location", "canadacentral",
	}, runner.calls[0])
}

func TestResourceExecutorsHonorDryrun(t *testing.T) {
	runner := &fakeRunner{}
	ctx := common.WithDryrun(context.Background(), true)

	executors := []common.Executor{
		NewResourceGroupExecutor(runner, "rg", "loc"),
		NewRegistryExecutor(runner, "acr", "rg", "Basic"),
		NewRegistryLoginExecutor(runner, "acr"),
		NewEnvironmentExecutor(runner, "env", "rg", "loc"),
	}
	for _, exec := range executors {
		assert.NoError(t, exec(ctx))
	}
	assert.Empty(t, runner.calls, "dry runs must not reach az")
}

func TestResourceExecutorsPropagateErrors(t *testing.T) {
	boom := &CommandError{ExitCode: 1, Stderr: "ERROR: boom"}
	runner := &fakeRunner{onRun: func(_ []string) error { return boom }}

	err := NewResourceGroupExecutor(runner, "rg", "loc")(context.Background())
	assert.ErrorIs(t, err, boom)
}
