package common

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// MaskedFormatter hides secret values in log output. Every occurrence of one
// of the values is replaced before the wrapped formatter runs, so secrets
// echoed back by subprocess output or command traces never reach the sink.
type MaskedFormatter struct {
	logrus.Formatter
	Values []string
}

func (f *MaskedFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	for _, v := range f.Values {
		if v != "" {
			entry.Message = strings.ReplaceAll(entry.Message, v, "***")
		}
	}
	return f.Formatter.Format(entry)
}
