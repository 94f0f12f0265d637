package azure

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"

	"github.com/leejad123/ls-azure-night-runner/pkg/common"
)

// JobSpec describes the desired state of the scheduled Container Apps job.
type JobSpec struct {
	Name          string
	ResourceGroup string
	Environment   string

	// Image is the fully qualified reference the job must run, i.e. the
	// tag pushed earlier in the same invocation.
	Image string

	Schedule string
	CPU      string
	Memory   string

	ReplicaTimeout         int
	ReplicaRetryLimit      int
	Parallelism            int
	ReplicaCompletionCount int

	RegistryServer string

	// Env is the container environment. Values may use the secretref:
	// scheme to reference entries of Secrets.
	Env map[string]string

	// Secrets maps Container Apps secret names to their values. Values
	// never appear in logs.
	Secrets map[string]string

	// Updated receives true when the job already existed and the update
	// fallback ran instead of create.
	Updated *bool
}

func (j JobSpec) createArgs() []string {
	args := []string{
		"containerapp", "job", "create",
		"--name", j.Name,
		"--resource-group", j.ResourceGroup,
		"--environment", j.Environment,
		"--trigger-type", "Schedule",
		"--cron-expression", j.Schedule,
		"--image", j.Image,
		"--cpu", j.CPU,
		"--memory", j.Memory,
		"--replica-timeout", strconv.Itoa(j.ReplicaTimeout),
		"--replica-retry-limit", strconv.Itoa(j.ReplicaRetryLimit),
		"--parallelism", strconv.Itoa(j.Parallelism),
		"--replica-completion-count", strconv.Itoa(j.ReplicaCompletionCount),
	}
	if j.RegistryServer != "" {
		args = append(args, "--registry-server", j.RegistryServer)
	}
	if len(j.Secrets) > 0 {
		args = append(args, "--secrets")
		args = append(args, sortedPairs(j.Secrets)...)
	}
	if len(j.Env) > 0 {
		args = append(args, "--env-vars")
		args = append(args, sortedPairs(j.Env)...)
	}
	return args
}

// updateArgs carries only the image and environment. Schedule and sizing are
// creation-time parameters; refreshing a live job must not rewrite them.
func (j JobSpec) updateArgs() []string {
	args := []string{
		"containerapp", "job", "update",
		"--name", j.Name,
		"--resource-group", j.ResourceGroup,
		"--image", j.Image,
	}
	if len(j.Env) > 0 {
		args = append(args, "--set-env-vars")
		args = append(args, sortedPairs(j.Env)...)
	}
	return args
}

func (j JobSpec) secretSetArgs() []string {
	args := []string{
		"containerapp", "job", "secret", "set",
		"--name", j.Name,
		"--resource-group", j.ResourceGroup,
		"--secrets",
	}
	return append(args, sortedPairs(j.Secrets)...)
}

// NewJobExecutor creates the scheduled job, falling back to an image and
// environment update when the job already exists. Any other create failure
// is returned as-is.
func NewJobExecutor(runner Runner, spec JobSpec) common.Executor {
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)

		createArgs := spec.createArgs()
		logger.Infof("%saz %s", logPrefix, shellquote.Join(maskSecretArgs(createArgs)...))
		if common.Dryrun(ctx) {
			return nil
		}

		err := runner.Run(ctx, createArgs...)
		if err == nil {
			return nil
		}
		if !IsAlreadyExists(err) {
			return err
		}

		logger.Infof("job %s already exists, refreshing image and environment", spec.Name)
		if spec.Updated != nil {
			*spec.Updated = true
		}

		if len(spec.Secrets) > 0 {
			secretArgs := spec.secretSetArgs()
			logger.Infof("%saz %s", logPrefix, shellquote.Join(maskSecretArgs(secretArgs)...))
			if err := runner.Run(ctx, secretArgs...); err != nil {
				return errors.WithMessagef(err, "updating secrets of job %s", spec.Name)
			}
		}

		updateArgs := spec.updateArgs()
		logger.Infof("%saz %s", logPrefix, shellquote.Join(updateArgs...))
		if err := runner.Run(ctx, updateArgs...); err != nil {
			return errors.WithMessagef(err, "updating job %s", spec.Name)
		}
		return nil
	}
}

// JobStatus is the subset of `az containerapp job show` the tool inspects.
type JobStatus struct {
	Name              string
	Image             string
	Schedule          string
	ProvisioningState string
}

// GetJob describes the deployed job.
func GetJob(ctx context.Context, runner Runner, name, group string) (*JobStatus, error) {
	out, err := runner.Output(ctx,
		"containerapp", "job", "show",
		"--name", name,
		"--resource-group", group,
		"--output", "json",
	)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Name       string `json:"name"`
		Properties struct {
			ProvisioningState string `json:"provisioningState"`
			Configuration     struct {
				ScheduleTriggerConfig struct {
					CronExpression string `json:"cronExpression"`
				} `json:"scheduleTriggerConfig"`
			} `json:"configuration"`
			Template struct {
				Containers []struct {
					Image string `json:"image"`
				} `json:"containers"`
			} `json:"template"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, errors.WithMessage(err, "cannot parse job description")
	}

	status := &JobStatus{
		Name:              payload.Name,
		Schedule:          payload.Properties.Configuration.ScheduleTriggerConfig.CronExpression,
		ProvisioningState: payload.Properties.ProvisioningState,
	}
	if len(payload.Properties.Template.Containers) > 0 {
		status.Image = payload.Properties.Template.Containers[0].Image
	}
	return status, nil
}

func sortedPairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+m[k])
	}
	return pairs
}

// maskSecretArgs hides the values of k=v pairs following a --secrets flag so
// command echoes stay safe to log.
func maskSecretArgs(args []string) []string {
	masked := make([]string, len(args))
	copy(masked, args)

	inSecrets := false
	for i, arg := range masked {
		switch {
		case arg == "--secrets":
			inSecrets = true
		case strings.HasPrefix(arg, "--"):
			inSecrets = false
		case inSecrets:
			if k, _, ok := strings.Cut(arg, "="); ok {
				masked[i] = k + "=***"
			}
		}
	}
	return masked
}
