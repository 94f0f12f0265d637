package container

import (
	"context"
	"os"
	"strings"

	"github.com/docker/cli/cli/connhelper"
	"github.com/docker/docker/client"
	"github.com/pkg/errors"

	"github.com/leejad123/ls-azure-night-runner/pkg/common"
)

// GetDockerClient returns a docker client honoring DOCKER_HOST, including
// ssh:// hosts via the cli connection helper
func GetDockerClient(ctx context.Context) (cli client.APIClient, err error) {
	dockerHost := os.Getenv("DOCKER_HOST")

	if strings.HasPrefix(dockerHost, "ssh://") {
		var helper *connhelper.ConnectionHelper

		helper, err = connhelper.GetConnectionHelper(dockerHost)
		if err != nil {
			return nil, err
		}
		cli, err = client.NewClientWithOpts(
			client.WithHost(helper.Host),
			client.WithDialContext(helper.Dialer),
		)
	} else {
		cli, err = client.NewClientWithOpts(client.FromEnv)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cli.NegotiateAPIVersion(ctx)

	return cli, nil
}

// NewDockerPingExecutor checks that the daemon is reachable before any
// build work starts
func NewDockerPingExecutor() common.Executor {
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)
		logger.Debugf("%sdocker ping", logPrefix)
		if common.Dryrun(ctx) {
			return nil
		}

		cli, err := GetDockerClient(ctx)
		if err != nil {
			return err
		}
		defer cli.Close()

		if _, err := cli.Ping(ctx); err != nil {
			return errors.WithMessage(err, "docker daemon is not reachable")
		}
		return nil
	}
}
