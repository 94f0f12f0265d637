package azure

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"

	"github.com/leejad123/ls-azure-night-runner/pkg/common"
)

const logPrefix = "  ☁  "

// ExtraArgsEnv holds operator-supplied arguments appended to every az
// invocation, e.g. --only-show-errors or --subscription.
const ExtraArgsEnv = "NIGHT_RUNNER_AZ_ARGS"

// Runner abstracts invocations of the az binary so provisioning logic can be
// exercised against a fake.
type Runner interface {
	// Run executes az with the given arguments, streaming output to the
	// context logger.
	Run(ctx context.Context, args ...string) error
	// Output executes az and returns its stdout.
	Output(ctx context.Context, args ...string) ([]byte, error)
}

type cliRunner struct {
	path      string
	extraArgs []string
}

// NewCLIRunner locates az on PATH and parses ExtraArgsEnv. Both failures are
// preflight errors, before anything is built or mutated.
func NewCLIRunner() (Runner, error) {
	path, err := exec.LookPath("az")
	if err != nil {
		return nil, errors.WithMessage(err, "azure cli (az) not found on PATH")
	}

	extraArgs, err := shellquote.Split(os.Getenv(ExtraArgsEnv))
	if err != nil {
		return nil, errors.WithMessagef(err, "cannot parse %s", ExtraArgsEnv)
	}

	return &cliRunner{path: path, extraArgs: extraArgs}, nil
}

func (r *cliRunner) Run(ctx context.Context, args ...string) error {
	logger := common.Logger(ctx)

	args = append(args, r.extraArgs...)
	logger.Debugf("exec %s", shellquote.Join(append([]string{r.path}, args...)...))

	tail := &tailBuffer{limit: 4096}

	stdout := common.NewLineWriter(func(line string) {
		logger.Debugf("%s", strings.TrimRight(line, "\n"))
	})
	stderr := common.NewLineWriter(func(line string) {
		line = strings.TrimRight(line, "\n")
		if line != "" {
			logger.Infof("%s", line)
		}
		tail.append(line)
	})

	cmd := exec.CommandContext(ctx, r.path, args...)
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stdout.Close()
	stderr.Close()

	return wrapRunError(ctx, args, err, tail.String())
}

func (r *cliRunner) Output(ctx context.Context, args ...string) ([]byte, error) {
	logger := common.Logger(ctx)

	args = append(args, r.extraArgs...)
	logger.Debugf("exec %s", shellquote.Join(append([]string{r.path}, args...)...))

	tail := &tailBuffer{limit: 4096}
	stderr := common.NewLineWriter(func(line string) {
		tail.append(strings.TrimRight(line, "\n"))
	})

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, args...)
	cmd.Stdin = nil
	cmd.Stdout = &out
	cmd.Stderr = stderr

	err := cmd.Run()
	stderr.Close()

	if err := wrapRunError(ctx, args, err, tail.String()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func wrapRunError(ctx context.Context, args []string, err error, stderrTail string) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if exitError, ok := err.(*exec.ExitError); ok {
		return &CommandError{
			Args:     args,
			ExitCode: exitError.ExitCode(),
			Stderr:   stderrTail,
		}
	}
	return err
}

// tailBuffer keeps the most recent stderr lines so command failures carry
// the message az printed last.
type tailBuffer struct {
	limit int
	lines []string
	size  int
}

func (t *tailBuffer) append(line string) {
	t.lines = append(t.lines, line)
	t.size += len(line)
	for t.size > t.limit && len(t.lines) > 1 {
		t.size -= len(t.lines[0])
		t.lines = t.lines[1:]
	}
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(strings.Join(t.lines, "\n"))
}
