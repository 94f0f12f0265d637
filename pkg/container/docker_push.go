package container

import (
	"context"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/pkg/errors"

	"github.com/leejad123/ls-azure-night-runner/pkg/common"
)

// NewImageTagExecutor tags the freshly built image with its fully qualified
// registry reference
func NewImageTagExecutor(input NewImageTagExecutorInput) common.Executor {
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)
		logger.Infof("%sdocker tag %s %s", logPrefix, input.SourceImage, input.TargetImage)
		if common.Dryrun(ctx) {
			return nil
		}

		cli, err := GetDockerClient(ctx)
		if err != nil {
			return err
		}
		defer cli.Close()

		return cli.ImageTag(ctx, input.SourceImage, input.TargetImage)
	}
}

// NewImagePushExecutor pushes the image to its registry, authenticating with
// whatever the local docker config holds for the registry host
func NewImagePushExecutor(input NewImagePushExecutorInput) common.Executor {
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)
		logger.Infof("%sdocker push %s", logPrefix, input.Image)
		if common.Dryrun(ctx) {
			return nil
		}

		cli, err := GetDockerClient(ctx)
		if err != nil {
			return err
		}
		defer cli.Close()

		authConfig, err := LoadDockerAuthConfig(ctx, input.Image)
		if err != nil {
			return errors.WithMessagef(err, "no registry credentials for %q", input.Image)
		}

		encodedAuth, err := registry.EncodeAuthConfig(authConfig)
		if err != nil {
			return err
		}

		reader, err := cli.ImagePush(ctx, input.Image, image.PushOptions{
			RegistryAuth: encodedAuth,
		})
		if err != nil {
			return err
		}
		if err := logDockerResponse(logger, reader, false); err != nil {
			return err
		}

		if input.Digest != nil {
			digest, err := FindImageDigest(ctx, input.Image)
			if err != nil {
				logger.Debugf("could not resolve pushed digest for %s: %v", input.Image, err)
				return nil
			}
			*input.Digest = digest
		}
		return nil
	}
}
