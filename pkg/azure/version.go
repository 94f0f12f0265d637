package azure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"

	"github.com/leejad123/ls-azure-night-runner/pkg/common"
)

// MinimumCLIVersion is the oldest azure-cli release carrying stable
// `az containerapp job` commands.
const MinimumCLIVersion = "2.50.0"

// NewVersionCheckExecutor verifies the installed azure-cli is recent enough
// before any resource is touched
func NewVersionCheckExecutor(runner Runner) common.Executor {
	return func(ctx context.Context) error {
		logger := common.Logger(ctx)
		logger.Debugf("%saz version", logPrefix)
		if common.Dryrun(ctx) {
			return nil
		}

		out, err := runner.Output(ctx, "version", "--output", "json")
		if err != nil {
			return errors.WithMessage(err, "azure cli preflight failed")
		}

		var payload struct {
			AzureCLI string `json:"azure-cli"`
		}
		if err := json.Unmarshal(out, &payload); err != nil {
			return errors.WithMessage(err, "cannot parse az version output")
		}

		v, err := semver.NewVersion(payload.AzureCLI)
		if err != nil {
			return errors.WithMessagef(err, "cannot parse azure cli version %q", payload.AzureCLI)
		}

		constraint, _ := semver.NewConstraint(">= " + MinimumCLIVersion)
		if !constraint.Check(v) {
			return fmt.Errorf("azure cli %s is older than the required %s", payload.AzureCLI, MinimumCLIVersion)
		}

		logger.Debugf("azure cli %s satisfies >= %s", payload.AzureCLI, MinimumCLIVersion)
		return nil
	}
}
