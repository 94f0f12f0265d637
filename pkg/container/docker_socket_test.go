package container

import (
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	assert "github.com/stretchr/testify/assert"
)

func init() {
	log.SetLevel(log.DebugLevel)
}

func TestSocketLocationPrefersDockerHost(t *testing.T) {
	dockerHost := "unix:///my/docker/host.sock"
	t.Setenv("DOCKER_HOST", dockerHost)

	socket, found := SocketLocation()

	assert.True(t, found)
	assert.Equal(t, dockerHost, socket)
}

func TestSocketLocationProbesCommonPaths(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", tmp)
	t.Setenv("HOME", tmp)

	// DOCKER_HOST must be unset for probing to happen; t.Setenv
	// restores the original value afterwards
	t.Setenv("DOCKER_HOST", "")
	os.Unsetenv("DOCKER_HOST")

	socket, found := SocketLocation()
	if !found {
		// no socket on this machine, nothing else to assert
		return
	}
	assert.NotEmpty(t, socket)
	assert.Regexp(t, "^(unix|npipe)://", socket)
}
