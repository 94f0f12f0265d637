package container

import (
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func dockerResponse(lines ...string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(strings.Join(lines, "\n")))
}

func TestLogDockerResponse(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	err := logDockerResponse(logger, dockerResponse(
		`{"stream":"Step 1/4 : FROM docker.io/library/golang:1.23"}`,
		`{"status":"Pushing","id":"layer1","progress":"[===>      ]"}`,
	), false)
	assert.NilError(t, err)
	assert.Check(t, is.Len(hook.AllEntries(), 2))
	assert.Check(t, is.Contains(hook.AllEntries()[0].Message, "Step 1/4"))
	assert.Check(t, is.Contains(hook.AllEntries()[1].Message, "Pushing"))
}

func TestLogDockerResponseSurfacesErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()

	err := logDockerResponse(logger, dockerResponse(
		`{"errorDetail":{"message":"denied: push access required"},"error":"denied: push access required"}`,
	), true)
	assert.ErrorContains(t, err, "denied")
	assert.Check(t, is.Equal(logrus.ErrorLevel, hook.LastEntry().Level))
}

func TestLogDockerResponseNilBody(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.NilError(t, logDockerResponse(logger, nil, false))
}
