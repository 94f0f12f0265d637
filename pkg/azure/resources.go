package azure

import (
	"context"

	"github.com/kballard/go-shellquote"

	"github.com/leejad123/ls-azure-night-runner/pkg/common"
)

// NewResourceGroupExecutor ensures the resource group exists in the given
// location
func NewResourceGroupExecutor(runner Runner, name, location string) common.Executor {
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)
		args := []string{"group", "create", "--name", name, "--location", location}
		logger.Infof("%saz %s", logPrefix, shellquote.Join(args...))
		if common.Dryrun(ctx) {
			return nil
		}
		return runner.Run(ctx, args...)
	}
}

// NewRegistryExecutor ensures the container registry exists with admin
// credentials enabled, which `az acr login` needs later
func NewRegistryExecutor(runner Runner, name, group, sku string) common.Executor {
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)
		args := []string{
			"acr", "create",
			"--name", name,
			"--resource-group", group,
			"--sku", sku,
			"--admin-enabled", "true",
		}
		logger.Infof("%saz %s", logPrefix, shellquote.Join(args...))
		if common.Dryrun(ctx) {
			return nil
		}
		return runner.Run(ctx, args...)
	}
}

// NewRegistryLoginExecutor deposits registry credentials into the local
// docker config so the push step can authenticate
func NewRegistryLoginExecutor(runner Runner, name string) common.Executor {
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)
		args := []string{"acr", "login", "--name", name}
		logger.Infof("%saz %s", logPrefix, shellquote.Join(args...))
		if common.Dryrun(ctx) {
			return nil
		}
		return runner.Run(ctx, args...)
	}
}

// NewEnvironmentExecutor ensures the Container Apps environment exists
func NewEnvironmentExecutor(runner Runner, name, group, location string) common.Executor {
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)
		args := []string{
			"containerapp", "env", "create",
			"--name", name,
			"--resource-group", group,
			"--location", location,
		}
		logger.Infof("%saz %s", logPrefix, shellquote.Join(args...))
		if common.Dryrun(ctx) {
			return nil
		}
		return runner.Run(ctx, args...)
	}
}
