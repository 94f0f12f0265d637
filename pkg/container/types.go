package container

import (
	"io"
)

// NewImageBuildExecutorInput the input for the NewImageBuildExecutor function
type NewImageBuildExecutorInput struct {
	ContextDir   string
	Dockerfile   string
	BuildContext io.Reader
	ImageTag     string
	BuildArgs    map[string]string
	Labels       map[string]string
}

// NewImageTagExecutorInput the input for the NewImageTagExecutor function
type NewImageTagExecutorInput struct {
	SourceImage string
	TargetImage string
}

// NewImagePushExecutorInput the input for the NewImagePushExecutor function
type NewImagePushExecutorInput struct {
	Image string
	// Digest receives the pushed repo digest when it can be resolved.
	Digest *string
}
