package azure

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leejad123/ls-azure-night-runner/pkg/common"
)

func TestVersionCheck(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr string
	}{
		{
			name:   "recent enough",
			output: `{"azure-cli": "2.61.0", "azure-cli-core": "2.61.0"}`,
		},
		{
			name:   "exact minimum",
			output: fmt.Sprintf(`{"azure-cli": %q}`, MinimumCLIVersion),
		},
		{
			name:    "too old",
			output:  `{"azure-cli": "2.40.0"}`,
			wantErr: "older than the required",
		},
		{
			name:    "garbage output",
			output:  `not json at all`,
			wantErr: "cannot parse az version output",
		},
		{
			name:    "missing field",
			output:  `{}`,
			wantErr: "cannot parse azure cli version",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{
				onOutput: func(args []string) ([]byte, error) {
					assert.Equal(t, []string{"version", "--output", "json"}, args)
					return []byte(tc.output), nil
				},
			}

			err := NewVersionCheckExecutor(runner)(context.Background())
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestVersionCheckPropagatesRunnerFailure(t *testing.T) {
	runner := &fakeRunner{
		onOutput: func(_ []string) ([]byte, error) {
			return nil, &CommandError{ExitCode: 127, Stderr: "az: not found"}
		},
	}

	err := NewVersionCheckExecutor(runner)(context.Background())
	assert.ErrorContains(t, err, "azure cli preflight failed")
}

func TestVersionCheckSkippedInDryrun(t *testing.T) {
	runner := &fakeRunner{}
	ctx := common.WithDryrun(context.Background(), true)

	assert.NoError(t, NewVersionCheckExecutor(runner)(ctx))
	assert.Empty(t, runner.calls)
}
