package cmd

import (
	"fmt"
	"time"

	"github.com/leejad123/ls-azure-night-runner/pkg/receipt"
)

func printHistory(store *receipt.Store, n int) error {
	receipts, err := store.List(n)
	if err != nil {
		return err
	}
	if len(receipts) == 0 {
		fmt.Println("No deploys recorded yet.")
		return nil
	}

	type lineInfoDef struct {
		when    string
		job     string
		image   string
		outcome string
		took    string
	}

	header := lineInfoDef{
		when:    "When",
		job:     "Job",
		image:   "Image",
		outcome: "Outcome",
		took:    "Took",
	}
	lineInfos := []lineInfoDef{}

	whenMaxWidth := len(header.when)
	jobMaxWidth := len(header.job)
	imageMaxWidth := len(header.image)
	outcomeMaxWidth := len(header.outcome)
	tookMaxWidth := len(header.took)

	for _, r := range receipts {
		line := lineInfoDef{
			when:    time.Unix(r.CreatedAt, 0).Format("2006-01-02 15:04:05"),
			job:     r.JobName,
			image:   r.Image,
			outcome: formatOutcome(r),
			took:    (time.Duration(r.DurationMS) * time.Millisecond).String(),
		}
		lineInfos = append(lineInfos, line)
		if whenMaxWidth < len(line.when) {
			whenMaxWidth = len(line.when)
		}
		if jobMaxWidth < len(line.job) {
			jobMaxWidth = len(line.job)
		}
		if imageMaxWidth < len(line.image) {
			imageMaxWidth = len(line.image)
		}
		if outcomeMaxWidth < len(line.outcome) {
			outcomeMaxWidth = len(line.outcome)
		}
		if tookMaxWidth < len(line.took) {
			tookMaxWidth = len(line.took)
		}
	}

	whenMaxWidth += 2
	jobMaxWidth += 2
	imageMaxWidth += 2
	outcomeMaxWidth += 2
	tookMaxWidth += 2

	fmt.Printf("%*s%*s%*s%*s%*s\n", -whenMaxWidth, header.when, -jobMaxWidth, header.job, -imageMaxWidth, header.image, -outcomeMaxWidth, header.outcome, -tookMaxWidth, header.took)
	for _, line := range lineInfos {
		fmt.Printf("%*s%*s%*s%*s%*s\n", -whenMaxWidth, line.when, -jobMaxWidth, line.job, -imageMaxWidth, line.image, -outcomeMaxWidth, line.outcome, -tookMaxWidth, line.took)
	}
	return nil
}

func formatOutcome(r *receipt.Receipt) string {
	outcome := r.Outcome
	if r.Outcome == receipt.OutcomeFailed && r.FailedStep != "" {
		outcome = fmt.Sprintf("%s at %s", r.Outcome, r.FailedStep)
	}
	if r.Updated {
		outcome += " (update)"
	}
	return outcome
}
