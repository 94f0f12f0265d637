package common

import (
	"context"
	"fmt"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestNewPipelineExecutor(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()

	// empty
	emptyPipeline := NewPipelineExecutor()
	assert.Nil(emptyPipeline(ctx))

	// error case
	errorPipeline := NewErrorExecutor(fmt.Errorf("test error"))
	assert.NotNil(errorPipeline(ctx))

	// multiple success case
	runcount := 0
	successPipeline := NewPipelineExecutor(
		func(_ context.Context) error {
			runcount++
			return nil
		},
		func(_ context.Context) error {
			runcount++
			return nil
		})
	assert.Nil(successPipeline(ctx))
	assert.Equal(2, runcount)
}

func TestPipelineStopsOnError(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()

	ran := false
	err := NewPipelineExecutor(
		NewErrorExecutor(fmt.Errorf("stop here")),
		func(_ context.Context) error {
			ran = true
			return nil
		})(ctx)

	assert.EqualError(err, "stop here")
	assert.False(ran, "executors after a failure must not run")
}

func TestPipelineContinuesOnWarning(t *testing.T) {
	assert := assert.New(t)

	logger, hook := test.NewNullLogger()
	ctx := WithLogger(context.Background(), logger)

	ran := false
	err := NewPipelineExecutor(
		NewErrorExecutor(Warningf("soft failure on %s", "resource")),
		func(_ context.Context) error {
			ran = true
			return nil
		})(ctx)

	assert.Nil(err)
	assert.True(ran, "a warning must not stop the pipeline")

	entry := hook.LastEntry()
	if assert.NotNil(entry) {
		assert.Equal(log.WarnLevel, entry.Level)
		assert.Equal("soft failure on resource", entry.Message)
	}
}

func TestPipelineTrailingWarning(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()

	// a warning from the last executor surfaces to the caller
	err := NewPipelineExecutor(Executor(func(_ context.Context) error {
		return Warningf("tail warning")
	}))(ctx)
	assert.IsType(Warning{}, err)
}

func TestNewFieldExecutor(t *testing.T) {
	assert := assert.New(t)

	logger, hook := test.NewNullLogger()
	ctx := WithLogger(context.Background(), logger)

	err := NewFieldExecutor("step", "login", NewInfoExecutor("logging in"))(ctx)
	assert.Nil(err)

	entry := hook.LastEntry()
	if assert.NotNil(entry) {
		assert.Equal("logging in", entry.Message)
		assert.Equal("login", entry.Data["step"])
	}
}

func TestNewConditionalExecutor(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()

	trueCount := 0
	falseCount := 0

	err := NewConditionalExecutor(func(_ context.Context) bool {
		return false
	}, func(_ context.Context) error {
		trueCount++
		return nil
	}, func(_ context.Context) error {
		falseCount++
		return nil
	})(ctx)

	assert.Nil(err)
	assert.Equal(0, trueCount)
	assert.Equal(1, falseCount)

	err = NewConditionalExecutor(func(_ context.Context) bool {
		return true
	}, func(_ context.Context) error {
		trueCount++
		return nil
	}, func(_ context.Context) error {
		falseCount++
		return nil
	})(ctx)

	assert.Nil(err)
	assert.Equal(1, trueCount)
	assert.Equal(1, falseCount)
}

func TestExecutorIf(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()

	count := 0
	exec := Executor(func(_ context.Context) error {
		count++
		return nil
	})

	assert.Nil(exec.IfBool(false)(ctx))
	assert.Equal(0, count)

	assert.Nil(exec.IfBool(true)(ctx))
	assert.Equal(1, count)

	truthy := Conditional(func(_ context.Context) bool { return true })
	assert.Nil(exec.IfNot(truthy)(ctx))
	assert.Equal(1, count)

	assert.Nil(exec.If(truthy.Not().Not())(ctx))
	assert.Equal(2, count)
}

func TestExecutorFinally(t *testing.T) {
	assert := assert.New(t)

	ctx := context.Background()

	cleanedUp := false
	cleanup := Executor(func(_ context.Context) error {
		cleanedUp = true
		return nil
	})

	err := NewErrorExecutor(fmt.Errorf("primary failure")).Finally(cleanup)(ctx)
	assert.EqualError(err, "primary failure")
	assert.True(cleanedUp, "finally must run even when the executor fails")
}

func TestExecutorThenCanceledContext(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())

	count := 0
	step := Executor(func(_ context.Context) error {
		count++
		cancel()
		return nil
	})

	err := step.Then(step)(ctx)
	assert.Equal(1, count)
	assert.ErrorIs(err, context.Canceled)
}
