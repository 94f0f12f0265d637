package provisioner

import (
	"context"
	"errors"
	"fmt"
	"time"

	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/robfig/cron/v3"

	"github.com/leejad123/ls-azure-night-runner/pkg/azure"
	"github.com/leejad123/ls-azure-night-runner/pkg/common"
	"github.com/leejad123/ls-azure-night-runner/pkg/common/git"
	"github.com/leejad123/ls-azure-night-runner/pkg/container"
	"github.com/leejad123/ls-azure-night-runner/pkg/receipt"
)

// Engine is the container image side of a run: build, tag and push against
// some daemon. Tests substitute a fake; everything else uses DockerEngine.
type Engine interface {
	Ping() common.Executor
	Build(input container.NewImageBuildExecutorInput) common.Executor
	Tag(input container.NewImageTagExecutorInput) common.Executor
	Push(input container.NewImagePushExecutorInput) common.Executor
	ImageExists(ctx context.Context, image string) (bool, error)
}

// DockerEngine runs image operations against the local docker daemon.
type DockerEngine struct{}

func (DockerEngine) Ping() common.Executor {
	return container.NewDockerPingExecutor()
}

func (DockerEngine) Build(input container.NewImageBuildExecutorInput) common.Executor {
	return container.NewImageBuildExecutor(input)
}

func (DockerEngine) Tag(input container.NewImageTagExecutorInput) common.Executor {
	return container.NewImageTagExecutor(input)
}

func (DockerEngine) Push(input container.NewImagePushExecutorInput) common.Executor {
	return container.NewImagePushExecutor(input)
}

func (DockerEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	return container.ImageExistsLocally(ctx, image)
}

// StepError names the pipeline step a fatal error came from.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Err.Error())
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Provisioner assembles the whole bootstrap sequence from a resolved
// configuration.
type Provisioner struct {
	Config *Config
	Runner azure.Runner
	Engine Engine
	Store  *receipt.Store
}

// New wires a Provisioner against the real az CLI, the local docker daemon
// and the default deploy history location. It fails when az is not on PATH.
func New(cfg *Config) (*Provisioner, error) {
	runner, err := azure.NewCLIRunner()
	if err != nil {
		return nil, err
	}
	path, err := receipt.DefaultPath()
	if err != nil {
		return nil, err
	}
	return &Provisioner{
		Config: cfg,
		Runner: runner,
		Engine: DockerEngine{},
		Store:  receipt.NewStore(path),
	}, nil
}

// Run executes the provisioning pipeline and records a receipt of the
// outcome. A trailing advisory warning does not fail the run.
func (p *Provisioner) Run(ctx context.Context) error {
	started := time.Now()
	rec := p.newReceipt(ctx)

	err := p.pipeline(rec)(ctx)
	if _, ok := err.(common.Warning); ok {
		common.Logger(ctx).Warning(err.Error())
		err = nil
	}

	p.record(ctx, rec, started, err)
	return err
}

func (p *Provisioner) pipeline(rec *receipt.Receipt) common.Executor {
	cfg := p.Config

	return common.NewPipelineExecutor(
		common.NewInfoExecutor("deploying %s as job %s", cfg.RemoteImage(), cfg.JobName),
		step("preflight", p.Engine.Ping()),
		step("build", p.buildExecutor()),
		step("version", azure.NewVersionCheckExecutor(p.Runner)),
		step("resource-group", p.resourceGroupExecutor()),
		step("registry", advisory(
			fmt.Sprintf("registry %s", cfg.ACRName),
			azure.NewRegistryExecutor(p.Runner, cfg.ACRName, cfg.ResourceGroup, cfg.RegistrySKU),
		)),
		step("login", azure.NewRegistryLoginExecutor(p.Runner, cfg.ACRName)),
		step("push", common.NewPipelineExecutor(
			p.Engine.Tag(container.NewImageTagExecutorInput{
				SourceImage: cfg.ImageTag,
				TargetImage: cfg.RemoteImage(),
			}),
			p.Engine.Push(container.NewImagePushExecutorInput{
				Image:  cfg.RemoteImage(),
				Digest: &rec.Digest,
			}),
		)),
		step("environment", advisory(
			fmt.Sprintf("environment %s", cfg.EnvName),
			azure.NewEnvironmentExecutor(p.Runner, cfg.EnvName, cfg.ResourceGroup, cfg.Location),
		)),
		step("job", azure.NewJobExecutor(p.Runner, p.jobSpec(rec))),
		p.summaryExecutor(rec),
	)
}

// step tags fatal errors with the step name and runs the executor with a
// matching logger field. Warnings pass through untouched so the pipeline
// continues past them.
func step(name string, exec common.Executor) common.Executor {
	exec = common.NewFieldExecutor("step", name, exec)
	return func(ctx context.Context) error {
		err := exec(ctx)
		if err == nil {
			return nil
		}
		if _, ok := err.(common.Warning); ok {
			return err
		}
		return &StepError{Step: name, Err: err}
	}
}

// advisory downgrades every failure of an idempotent create so the run
// continues. A real misconfiguration resurfaces at the next fatal step.
func advisory(what string, exec common.Executor) common.Executor {
	return func(ctx context.Context) error {
		err := exec(ctx)
		if err == nil {
			return nil
		}
		if azure.IsAlreadyExists(err) {
			common.Logger(ctx).Debugf("%s already exists", what)
			return nil
		}
		return common.Warningf("could not ensure %s: %v", what, err)
	}
}

func (p *Provisioner) resourceGroupExecutor() common.Executor {
	cfg := p.Config
	exec := azure.NewResourceGroupExecutor(p.Runner, cfg.ResourceGroup, cfg.Location)
	return func(ctx context.Context) error {
		err := exec(ctx)
		if err == nil {
			return nil
		}
		if azure.IsAlreadyExists(err) {
			return common.Warningf("resource group %s already exists", cfg.ResourceGroup)
		}
		return err
	}
}

func (p *Provisioner) buildExecutor() common.Executor {
	cfg := p.Config
	if cfg.NoBuild {
		check := common.Executor(func(ctx context.Context) error {
			exists, err := p.Engine.ImageExists(ctx, cfg.ImageTag)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("image %s not found locally and building is disabled", cfg.ImageTag)
			}
			return nil
		})
		return common.NewDebugExecutor("build disabled, checking for local image %s", cfg.ImageTag).
			Then(check.IfNot(common.Dryrun))
	}
	return func(ctx context.Context) error {
		return p.Engine.Build(container.NewImageBuildExecutorInput{
			ContextDir: cfg.ContextDir,
			Dockerfile: cfg.Dockerfile,
			ImageTag:   cfg.ImageTag,
			BuildArgs:  cfg.BuildArgs,
			Labels:     buildLabels(ctx, cfg.ContextDir),
		})(ctx)
	}
}

// buildLabels stamps the image with when and from which revision it was
// built. Lookups are best effort; a context outside any git work tree simply
// yields fewer labels.
func buildLabels(ctx context.Context, contextDir string) map[string]string {
	labels := map[string]string{
		specs.AnnotationCreated: time.Now().UTC().Format(time.RFC3339),
	}
	if _, sha, err := git.FindGitRevision(ctx, contextDir); err == nil {
		labels[specs.AnnotationRevision] = sha
	}
	if ref, err := git.FindGitRef(ctx, contextDir); err == nil {
		labels[specs.AnnotationRefName] = ref
	}
	if url, err := git.FindGitRemoteURL(ctx, contextDir, "origin"); err == nil && url != "" {
		labels[specs.AnnotationSource] = url
	}
	return labels
}

func (p *Provisioner) jobSpec(rec *receipt.Receipt) azure.JobSpec {
	cfg := p.Config

	env := make(map[string]string, len(cfg.JobEnv)+len(cfg.Secrets))
	for k, v := range cfg.JobEnv {
		env[k] = v
	}

	secrets := make(map[string]string, len(cfg.Secrets))
	for key, value := range cfg.Secrets {
		name := SecretName(key)
		secrets[name] = value
		env[key] = "secretref:" + name
	}

	return azure.JobSpec{
		Name:          cfg.JobName,
		ResourceGroup: cfg.ResourceGroup,
		Environment:   cfg.EnvName,
		Image:         cfg.RemoteImage(),
		Schedule:      cfg.Schedule,
		CPU:           cfg.CPU,
		Memory:        cfg.Memory,

		ReplicaTimeout:         ReplicaTimeoutSeconds,
		ReplicaRetryLimit:      ReplicaRetryLimit,
		Parallelism:            Parallelism,
		ReplicaCompletionCount: ReplicaCompletionCount,

		RegistryServer: cfg.RegistryServer(),
		Env:            env,
		Secrets:        secrets,
		Updated:        &rec.Updated,
	}
}

func (p *Provisioner) summaryExecutor(rec *receipt.Receipt) common.Executor {
	cfg := p.Config
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)
		logger.Infof("resource group %s in %s", cfg.ResourceGroup, cfg.Location)
		logger.Infof("registry       %s", cfg.RegistryServer())
		logger.Infof("environment    %s", cfg.EnvName)
		logger.Infof("job            %s on schedule '%s' with cpu %s and memory %s", cfg.JobName, cfg.Schedule, cfg.CPU, cfg.Memory)
		if sched, err := cron.ParseStandard(cfg.Schedule); err == nil {
			logger.Infof("next run       %s", sched.Next(time.Now()).Format(time.RFC1123))
		}
		logger.Infof("image          %s", cfg.RemoteImage())
		if rec.Digest != "" {
			logger.Infof("digest         %s", rec.Digest)
		}
		if rec.Updated {
			logger.Infof("existing job refreshed in place")
		} else {
			logger.Infof("job created")
		}
		return nil
	}
}

func (p *Provisioner) newReceipt(ctx context.Context) *receipt.Receipt {
	cfg := p.Config
	rec := &receipt.Receipt{
		JobName:       cfg.JobName,
		ResourceGroup: cfg.ResourceGroup,
		Registry:      cfg.RegistryServer(),
		Image:         cfg.RemoteImage(),
		Schedule:      cfg.Schedule,
	}
	if _, sha, err := git.FindGitRevision(ctx, cfg.ContextDir); err == nil {
		rec.Revision = sha
	}
	return rec
}

func (p *Provisioner) record(ctx context.Context, rec *receipt.Receipt, started time.Time, runErr error) {
	if p.Store == nil || common.Dryrun(ctx) {
		return
	}
	rec.DurationMS = time.Since(started).Milliseconds()
	rec.Outcome = receipt.OutcomeSucceeded
	if runErr != nil {
		rec.Outcome = receipt.OutcomeFailed
		var stepErr *StepError
		if errors.As(runErr, &stepErr) {
			rec.FailedStep = stepErr.Step
		}
	}
	if err := p.Store.Record(rec); err != nil {
		common.Logger(ctx).Warnf("could not record deploy receipt: %v", err)
	}
}
