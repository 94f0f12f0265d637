package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	fswatch "github.com/andreaskoch/go-fswatch"
	"github.com/mattn/go-isatty"
	gitignore "github.com/sabhiram/go-gitignore"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leejad123/ls-azure-night-runner/pkg/azure"
	"github.com/leejad123/ls-azure-night-runner/pkg/common"
	"github.com/leejad123/ls-azure-night-runner/pkg/container"
	"github.com/leejad123/ls-azure-night-runner/pkg/provisioner"
	"github.com/leejad123/ls-azure-night-runner/pkg/receipt"
)

// Execute is the entry point to running the CLI
func Execute(ctx context.Context, version string) {
	input := new(Input)
	var rootCmd = &cobra.Command{
		Use:           "night-runner",
		Short:         "Build the nightly runner image and provision its scheduled job on Azure.",
		Args:          cobra.NoArgs,
		RunE:          newRunCommand(ctx, input),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindNameFlags(rootCmd.Flags(), input)
	bindBuildFlags(rootCmd.Flags(), input)
	bindJobFlags(rootCmd.Flags(), input)
	bindModeFlags(rootCmd.Flags(), input)
	rootCmd.PersistentFlags().BoolVarP(&input.dryrun, "dryrun", "n", false, "log the commands without running them")
	rootCmd.PersistentFlags().BoolVarP(&input.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&input.jsonLogs, "json", false, "log in JSON format")
	// errors surface through the logger so the masking formatter applies to
	// them as well
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func bindNameFlags(flags *pflag.FlagSet, input *Input) {
	flags.StringVar(&input.resourceGroup, "resource-group", "", "resource group name, overrides RESOURCE_GROUP")
	flags.StringVar(&input.location, "location", "", "cloud region for created resources, overrides LOCATION")
	flags.StringVar(&input.acrName, "acr-name", "", "globally unique registry name, overrides ACR_NAME")
	flags.StringVar(&input.envName, "env-name", "", "Container Apps environment name, overrides ENV_NAME")
	flags.StringVar(&input.jobName, "job-name", "", "scheduled job name, overrides JOB_NAME")
	flags.StringVar(&input.imageTag, "image-tag", "", "local image tag, overrides IMAGE_TAG")
}

func bindBuildFlags(flags *pflag.FlagSet, input *Input) {
	flags.StringVarP(&input.contextDir, "context", "C", ".", "path to the image build context")
	flags.StringVar(&input.dockerfile, "dockerfile", "Dockerfile", "path to the Dockerfile, relative to the build context")
	flags.StringArrayVar(&input.buildArgs, "build-arg", []string{}, "build-time variable in NAME=value form")
	flags.BoolVar(&input.noBuild, "no-build", false, "skip the build and require the image tag to exist locally")
}

func bindJobFlags(flags *pflag.FlagSet, input *Input) {
	flags.StringVar(&input.schedule, "schedule", provisioner.DefaultSchedule, "cron expression the job runs on")
	flags.StringVar(&input.cpu, "cpu", provisioner.DefaultCPU, "cpu request of the job container")
	flags.StringVar(&input.memory, "memory", provisioner.DefaultMemory, "memory request of the job container")
	flags.StringVar(&input.registrySKU, "registry-sku", provisioner.DefaultRegistrySKU, "sku used when the registry has to be created")
	flags.StringArrayVarP(&input.envs, "env", "e", []string{}, "job environment entry NAME=value, NAME alone copies the value from the current environment")
	flags.StringVar(&input.envfile, "env-file", ".env", "dotenv file merged into the job environment when present")
	flags.StringArrayVarP(&input.secrets, "secret", "s", []string{}, "job secret NAME=value, NAME alone reads the current environment or prompts")
	flags.StringVar(&input.secretfile, "secret-file", ".secrets", "dotenv file with job secrets, read when present")
}

func bindModeFlags(flags *pflag.FlagSet, input *Input) {
	flags.BoolVarP(&input.watch, "watch", "w", false, "watch the build context and re-run on changes")
	flags.IntVar(&input.historySize, "history", 0, "print the last N deploys and exit")
	flags.BoolVar(&input.verify, "verify", false, "compare the deployed job with the expected image and exit")
}

func newRunCommand(ctx context.Context, input *Input) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		setupLogging(input)

		if input.historySize > 0 {
			path, err := receipt.DefaultPath()
			if err != nil {
				return err
			}
			return printHistory(receipt.NewStore(path), input.historySize)
		}

		cfg, err := resolveConfig(input)
		if err != nil {
			return err
		}
		maskSecrets(cfg)

		// pin DOCKER_HOST early so the client and detection agree on
		// non-standard sockets such as colima or rootless podman
		if socketPath, found := container.SocketLocation(); found {
			os.Setenv("DOCKER_HOST", socketPath)
		}

		p, err := provisioner.New(cfg)
		if err != nil {
			return err
		}

		if input.verify {
			return verifyJob(ctx, p)
		}

		ctx = common.WithDryrun(ctx, input.dryrun)
		if input.watch {
			return watchAndRun(ctx, p.Run, input.ContextDir())
		}
		return p.Run(ctx)
	}
}

func setupLogging(input *Input) {
	if input.verbose {
		log.SetLevel(log.DebugLevel)
	}
	if input.jsonLogs {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	log.SetFormatter(&log.TextFormatter{
		DisableColors: !isTTY,
	})
}

// maskSecrets keeps resolved secret values out of every log line, including
// subprocess traces that echo them back.
func maskSecrets(cfg *provisioner.Config) {
	if len(cfg.Secrets) == 0 {
		return
	}
	values := make([]string, 0, len(cfg.Secrets))
	for _, v := range cfg.Secrets {
		values = append(values, v)
	}
	log.SetFormatter(&common.MaskedFormatter{
		Formatter: log.StandardLogger().Formatter,
		Values:    values,
	})
}

// resolveConfig layers flag values over the environment-derived defaults and
// validates the result.
func resolveConfig(input *Input) (*provisioner.Config, error) {
	cfg := provisioner.FromEnvironment()

	if input.resourceGroup != "" {
		cfg.ResourceGroup = input.resourceGroup
	}
	if input.location != "" {
		cfg.Location = input.location
	}
	if input.acrName != "" {
		cfg.ACRName = input.acrName
	}
	if input.envName != "" {
		cfg.EnvName = input.envName
	}
	if input.jobName != "" {
		cfg.JobName = input.jobName
	}
	if input.imageTag != "" {
		cfg.ImageTag = input.imageTag
	}

	cfg.Schedule = input.schedule
	cfg.CPU = input.cpu
	cfg.Memory = input.memory
	cfg.RegistrySKU = input.registrySKU
	cfg.ContextDir = input.ContextDir()
	cfg.Dockerfile = input.dockerfile
	cfg.NoBuild = input.noBuild

	buildArgs := map[string]string{}
	parseEnvs(input.buildArgs, buildArgs)
	cfg.BuildArgs = buildArgs

	envs := map[string]string{}
	if input.envfile != "" {
		readEnvs(input.Envfile(), envs)
	}
	parseEnvs(input.envs, envs)
	if err := cfg.ApplyJobEnv(envs); err != nil {
		return nil, err
	}

	secretValues := map[string]string{}
	if input.secretfile != "" {
		readEnvs(input.Secretfile(), secretValues)
	}
	for k, v := range newSecrets(input.secrets) {
		secretValues[k] = v
	}
	cfg.Secrets = secretValues

	if cfg.ACRName == provisioner.ACRNamePlaceholder && isatty.IsTerminal(os.Stdin.Fd()) {
		if err := survey.AskOne(&survey.Input{
			Message: "ACR_NAME is unset. Globally unique registry name:",
		}, &cfg.ACRName, survey.WithValidator(survey.Required)); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func verifyJob(ctx context.Context, p *provisioner.Provisioner) error {
	cfg := p.Config
	status, err := azure.GetJob(ctx, p.Runner, cfg.JobName, cfg.ResourceGroup)
	if err != nil {
		return err
	}

	log.Infof("job %s is %s", status.Name, status.ProvisioningState)
	log.Infof("schedule %s", status.Schedule)
	log.Infof("image %s", status.Image)

	if status.Image != cfg.RemoteImage() {
		return fmt.Errorf("job runs %s instead of the expected %s, re-run the provisioner", status.Image, cfg.RemoteImage())
	}
	log.Infof("job image matches the expected reference")
	return nil
}

func watchAndRun(ctx context.Context, fn common.Executor, dir string) error {
	log.Debugf("Watching %s for changes", dir)

	ignore := &gitignore.GitIgnore{}
	if _, err := os.Stat(filepath.Join(dir, ".gitignore")); !os.IsNotExist(err) {
		ignore, _ = gitignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	}

	folderWatcher := fswatch.NewFolderWatcher(dir, true, ignore.MatchesPath, 2)
	folderWatcher.Start()
	defer folderWatcher.Stop()

	if err := fn(ctx); err != nil {
		return err
	}

	for folderWatcher.IsRunning() {
		select {
		case <-ctx.Done():
			return nil
		case changes := <-folderWatcher.ChangeDetails():
			log.Debugf("%s", changes.String())
			if err := fn(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}
