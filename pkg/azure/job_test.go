package azure

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leejad123/ls-azure-night-runner/pkg/common"
)

func testJobSpec() JobSpec {
	return JobSpec{
		Name:                   "ls-night-runner-job",
		ResourceGroup:          "ls-night-runner-rg",
		Environment:            "ls-night-runner-env",
		Image:                  "myacr.azurecr.io/ls-azure-night-runner:dev",
		Schedule:               "0 4 * * *",
		CPU:                    "0.25",
		Memory:                 "0.5Gi",
		ReplicaTimeout:         1800,
		ReplicaRetryLimit:      0,
		Parallelism:            1,
		ReplicaCompletionCount: 1,
		RegistryServer:         "myacr.azurecr.io",
		Env: map[string]string{
			"LS_SPEC_ROOT": "/workspace/ls-spec",
		},
	}
}

func TestJobCreateArgs(t *testing.T) {
	spec := testJobSpec()
	spec.Env["NIGHT_MODE"] = "full"

	assert.Equal(t, []string{
		"containerapp", "job", "create",
		"--name", "ls-night-runner-job",
		"--resource-group", "ls-night-runner-rg",
		"--environment", "ls-night-runner-env",
		"--trigger-type", "Schedule",
		"--cron-expression", "0 4 * * *",
		"--image", "myacr.azurecr.io/ls-azure-night-runner:dev",
		"--cpu", "0.25",
		"--memory", "0.5Gi",
		"--replica-timeout", "1800",
		"--replica-retry-limit", "0",
		"--parallelism", "1",
		"--replica-completion-count", "1",
		"--registry-server", "myacr.azurecr.io",
		"--env-vars", "LS_SPEC_ROOT=/workspace/ls-spec", "NIGHT_MODE=full",
	}, spec.createArgs())
}

func TestJobUpdateArgsCarryOnlyImageAndEnv(t *testing.T) {
	spec := testJobSpec()

	args := spec.updateArgs()
	assert.Equal(t, []string{
		"containerapp", "job", "update",
		"--name", "ls-night-runner-job",
		"--resource-group", "ls-night-runner-rg",
		"--image", "myacr.azurecr.io/ls-azure-night-runner:dev",
		"--set-env-vars", "LS_SPEC_ROOT=/workspace/ls-spec",
	}, args)

	joined := strings.Join(args, " ")
	for _, banned := range []string{"--cron-expression", "--cpu", "--memory", "--trigger-type", "--registry-server"} {
		assert.NotContains(t, joined, banned)
	}
}

func TestJobSecretSetArgs(t *testing.T) {
	spec := testJobSpec()
	spec.Secrets = map[string]string{
		"ls-api-token": "hunter2",
		"db-password":  "swordfish",
	}

	assert.Equal(t, []string{
		"containerapp", "job", "secret", "set",
		"--name", "ls-night-runner-job",
		"--resource-group", "ls-night-runner-rg",
		"--secrets", "db-password=swordfish", "ls-api-token=hunter2",
	}, spec.secretSetArgs())
}

func TestJobExecutorCreatesWhenMissing(t *testing.T) {
	runner := &fakeRunner{}
	spec := testJobSpec()
	var updated bool
	spec.Updated = &updated

	require.NoError(t, NewJobExecutor(runner, spec)(context.Background()))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, spec.createArgs(), runner.calls[0])
	assert.False(t, updated)
}

func TestJobExecutorFallsBackToUpdate(t *testing.T) {
	exists := &CommandError{ExitCode: 1, Stderr: "ERROR: job already exists"}
	runner := &fakeRunner{
		onRun: func(args []string) error {
			if args[2] == "create" {
				return exists
			}
			return nil
		},
	}
	spec := testJobSpec()
	var updated bool
	spec.Updated = &updated

	require.NoError(t, NewJobExecutor(runner, spec)(context.Background()))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, spec.createArgs(), runner.calls[0])
	assert.Equal(t, spec.updateArgs(), runner.calls[1])
	assert.True(t, updated)
}

func TestJobExecutorUpdatesSecretsBeforeFallback(t *testing.T) {
	exists := &CommandError{ExitCode: 1, Stderr: "Conflict"}
	runner := &fakeRunner{
		onRun: func(args []string) error {
			if args[2] == "create" {
				return exists
			}
			return nil
		},
	}
	spec := testJobSpec()
	spec.Secrets = map[string]string{"ls-api-token": "hunter2"}
	spec.Env["LS_API_TOKEN"] = "secretref:ls-api-token"

	require.NoError(t, NewJobExecutor(runner, spec)(context.Background()))

	require.Len(t, runner.calls, 3)
	assert.Equal(t, "create", runner.calls[0][2])
	assert.Equal(t, spec.secretSetArgs(), runner.calls[1])
	assert.Equal(t, spec.updateArgs(), runner.calls[2])
}

func TestJobExecutorSurfacesOtherCreateFailures(t *testing.T) {
	boom := &CommandError{ExitCode: 1, Stderr: "ERROR: Please run 'az login'"}
	runner := &fakeRunner{onRun: func(_ []string) error { return boom }}

	err := NewJobExecutor(runner, testJobSpec())(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Len(t, runner.calls, 1, "no fallback on errors other than already-exists")
}

func TestJobExecutorSurfacesUpdateFailure(t *testing.T) {
	exists := &CommandError{ExitCode: 1, Stderr: "already exists"}
	boom := &CommandError{ExitCode: 1, Stderr: "ERROR: quota"}
	runner := &fakeRunner{
		onRun: func(args []string) error {
			if args[2] == "create" {
				return exists
			}
			return boom
		},
	}

	err := NewJobExecutor(runner, testJobSpec())(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "updating job")
}

func TestJobExecutorDryrun(t *testing.T) {
	runner := &fakeRunner{}
	ctx := common.WithDryrun(context.Background(), true)

	require.NoError(t, NewJobExecutor(runner, testJobSpec())(ctx))
	assert.Empty(t, runner.calls)
}

func TestGetJob(t *testing.T) {
	payload := `{
  "name": "ls-night-runner-job",
  "properties": {
    "provisioningState": "Succeeded",
    "configuration": {
      "scheduleTriggerConfig": {"cronExpression": "0 4 * * *"}
    },
    "template": {
      "containers": [{"image": "myacr.azurecr.io/ls-azure-night-runner:dev"}]
    }
  }
}`
	runner := &fakeRunner{
		onOutput: func(args []string) ([]byte, error) {
			assert.Equal(t, []string{
				"containerapp", "job", "show",
				"--name", "ls-night-runner-job",
				"--resource-group", "ls-night-runner-rg",
				"--output", "json",
			}, args)
			return []byte(payload), nil
		},
	}

	status, err := GetJob(context.Background(), runner, "ls-night-runner-job", "ls-night-runner-rg")
	require.NoError(t, err)
	assert.Equal(t, "ls-night-runner-job", status.Name)
	assert.Equal(t, "myacr.azurecr.io/ls-azure-night-runner:dev", status.Image)
	assert.Equal(t, "0 4 * * *", status.Schedule)
	assert.Equal(t, "Succeeded", status.ProvisioningState)
}

func TestMaskSecretArgs(t *testing.T) {
	args := []string{
		"containerapp", "job", "create",
		"--secrets", "ls-api-token=hunter2", "db-password=swordfish",
		"--env-vars", "LS_SPEC_ROOT=/workspace/ls-spec",
	}

	masked := maskSecretArgs(args)
	joined := strings.Join(masked, " ")

	assert.NotContains(t, joined, "hunter2")
	assert.NotContains(t, joined, "swordfish")
	assert.Contains(t, joined, "ls-api-token=***")
	assert.Contains(t, joined, "LS_SPEC_ROOT=/workspace/ls-spec", "env values are not secret")

	// input slice is left untouched
	assert.Equal(t, "ls-api-token=hunter2", args[4])
}
