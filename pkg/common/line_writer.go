package common

import (
	"bytes"
	"io"
)

// LineHandler is a callback function for handling a line
type LineHandler func(line string)

type lineWriter struct {
	buffer   bytes.Buffer
	handlers []LineHandler
}

// NewLineWriter creates a writer that splits its input into lines and feeds
// each complete line to the handlers. Close flushes a trailing partial line,
// which subprocess output frequently ends with.
func NewLineWriter(handlers ...LineHandler) io.WriteCloser {
	w := new(lineWriter)
	w.handlers = handlers
	return w
}

func (lw *lineWriter) Write(p []byte) (n int, err error) {
	pBuf := bytes.NewBuffer(p)
	written := 0
	for {
		line, err := pBuf.ReadString('\n')
		w, _ := lw.buffer.WriteString(line)
		written += w
		if err == nil {
			lw.handleLine(lw.buffer.String())
			lw.buffer.Reset()
		} else if err == io.EOF {
			break
		} else {
			return written, err
		}
	}

	return written, nil
}

func (lw *lineWriter) Close() error {
	if lw.buffer.Len() > 0 {
		lw.handleLine(lw.buffer.String())
		lw.buffer.Reset()
	}
	return nil
}

func (lw *lineWriter) handleLine(line string) {
	for _, h := range lw.handlers {
		h(line)
	}
}
