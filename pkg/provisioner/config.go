package provisioner

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/distribution/reference"
	"github.com/robfig/cron/v3"
)

// Defaults for the six environment variables. The registry name defaults to
// the placeholder, which Validate rejects until the operator picks a real
// name.
const (
	DefaultResourceGroup = "ls-night-runner-rg"
	DefaultLocation      = "canadacentral"
	DefaultACRName       = ACRNamePlaceholder
	DefaultEnvName       = "ls-night-runner-env"
	DefaultJobName       = "ls-night-runner-job"
	DefaultImageTag      = "ls-azure-night-runner:dev"
)

// Fixed job parameters. Flags may override them; the environment never does.
const (
	DefaultSchedule = "0 4 * * *"
	DefaultCPU      = "0.25"
	DefaultMemory   = "0.5Gi"

	DefaultRegistrySKU = "Basic"
)

const (
	// ACRNamePlaceholder is the documented stand-in registry name. Runs
	// must not proceed while it is still in effect.
	ACRNamePlaceholder = "youracrname"

	registryDomainSuffix = ".azurecr.io"

	specRootKey     = "LS_SPEC_ROOT"
	specRootDefault = "/workspace/ls-spec"
)

// Replica parameters of the scheduled job. The nightly run is a single
// non-retrying replica with a generous timeout.
const (
	ReplicaTimeoutSeconds  = 1800
	ReplicaRetryLimit      = 0
	Parallelism            = 1
	ReplicaCompletionCount = 1
)

// Config is the fully resolved input of a provisioning run. It is built once
// at startup; nothing reads the environment afterwards.
type Config struct {
	ResourceGroup string
	Location      string
	ACRName       string
	EnvName       string
	JobName       string
	ImageTag      string

	Schedule    string
	CPU         string
	Memory      string
	RegistrySKU string

	ContextDir string
	Dockerfile string
	BuildArgs  map[string]string
	NoBuild    bool

	// JobEnv is the container environment of the scheduled job.
	JobEnv map[string]string

	// Secrets maps raw secret keys (as given by the operator) to values.
	// They surface in JobEnv as secretref: entries during provisioning.
	Secrets map[string]string
}

// FromEnvironment resolves the configuration from the six environment
// variables, falling back to the documented defaults. Empty values count as
// unset.
func FromEnvironment() *Config {
	return &Config{
		ResourceGroup: envOrDefault("RESOURCE_GROUP", DefaultResourceGroup),
		Location:      envOrDefault("LOCATION", DefaultLocation),
		ACRName:       envOrDefault("ACR_NAME", DefaultACRName),
		EnvName:       envOrDefault("ENV_NAME", DefaultEnvName),
		JobName:       envOrDefault("JOB_NAME", DefaultJobName),
		ImageTag:      envOrDefault("IMAGE_TAG", DefaultImageTag),

		Schedule:    DefaultSchedule,
		CPU:         DefaultCPU,
		Memory:      DefaultMemory,
		RegistrySKU: DefaultRegistrySKU,

		ContextDir: ".",
		Dockerfile: "Dockerfile",

		JobEnv: map[string]string{
			specRootKey: specRootDefault,
		},
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Validate normalizes and checks the configuration. It must pass before the
// provisioning pipeline is assembled.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"resource group": c.ResourceGroup,
		"location":       c.Location,
		"registry name":  c.ACRName,
		"environment":    c.EnvName,
		"job name":       c.JobName,
	} {
		if v == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	if c.ACRName == ACRNamePlaceholder {
		return fmt.Errorf("ACR_NAME is still the placeholder %q, set it to your registry name", ACRNamePlaceholder)
	}

	named, err := reference.ParseNormalizedNamed(c.ImageTag)
	if err != nil {
		return fmt.Errorf("invalid IMAGE_TAG %q: %w", c.ImageTag, err)
	}
	c.ImageTag = reference.FamiliarString(reference.TagNameOnly(named))

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}

	if _, err := strconv.ParseFloat(c.CPU, 64); err != nil {
		return fmt.Errorf("invalid cpu %q: %w", c.CPU, err)
	}
	if c.Memory == "" {
		return fmt.Errorf("memory must not be empty")
	}

	if _, err := reference.ParseNormalizedNamed(c.RemoteImage()); err != nil {
		return fmt.Errorf("invalid remote image reference %q: %w", c.RemoteImage(), err)
	}

	return nil
}

// RegistryServer is the login server of the container registry.
func (c *Config) RegistryServer() string {
	return c.ACRName + registryDomainSuffix
}

// RemoteImage is the fully qualified reference the image is pushed to and
// the job runs.
func (c *Config) RemoteImage() string {
	return c.RegistryServer() + "/" + c.ImageTag
}

// ApplyJobEnv overlays extra entries over the job environment; extra wins on
// conflicts.
func (c *Config) ApplyJobEnv(extra map[string]string) error {
	if len(extra) == 0 {
		return nil
	}
	if c.JobEnv == nil {
		c.JobEnv = map[string]string{}
	}
	return mergo.Merge(&c.JobEnv, extra, mergo.WithOverride)
}

// SecretName normalizes a raw secret key into a Container Apps secret name.
func SecretName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}
