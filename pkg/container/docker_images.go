package container

import (
	"context"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
)

// ImageExistsLocally returns a boolean indicating if an image with the
// requested name and tag exists in the local docker image store
func ImageExistsLocally(ctx context.Context, imageName string) (bool, error) {
	cli, err := GetDockerClient(ctx)
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", imageName)),
	})
	if err != nil {
		return false, err
	}

	return len(images) > 0, nil
}

// FindImageDigest resolves the repo digest recorded for imageName, which the
// registry assigns during a push. Returns an empty string when no digest is
// known locally.
func FindImageDigest(ctx context.Context, imageName string) (string, error) {
	cli, err := GetDockerClient(ctx)
	if err != nil {
		return "", err
	}
	defer cli.Close()

	named, err := reference.ParseNormalizedNamed(imageName)
	if err != nil {
		return "", err
	}

	inspect, _, err := cli.ImageInspectWithRaw(ctx, imageName)
	if err != nil {
		return "", err
	}

	return digestFor(named, inspect.RepoDigests), nil
}

func digestFor(named reference.Named, repoDigests []string) string {
	for _, rd := range repoDigests {
		canonical, err := reference.ParseNormalizedNamed(rd)
		if err != nil {
			continue
		}
		if canonical.Name() != named.Name() {
			continue
		}
		if c, ok := canonical.(reference.Canonical); ok {
			return c.Digest().String()
		}
	}
	return ""
}
