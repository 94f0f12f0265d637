package azure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// CommandError is a failed az invocation, carrying the exit code and the
// tail of stderr for classification and error messages.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("az %s exited with status %d", shellquote.Join(e.Args...), e.ExitCode)
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, lastLine(e.Stderr))
	}
	return msg
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

// existsVocabulary covers the conflict phrasing az and ARM use when a
// resource with the requested name is already provisioned.
var existsVocabulary = []string{
	"already exists",
	"alreadyexists",
	"already in use",
	"conflict",
}

// IsAlreadyExists reports whether err is an az failure caused by the target
// resource already existing.
func IsAlreadyExists(err error) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	stderr := strings.ToLower(cmdErr.Stderr)
	for _, phrase := range existsVocabulary {
		if strings.Contains(stderr, phrase) {
			return true
		}
	}
	return false
}
