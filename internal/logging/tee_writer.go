package logging

import (
	"io"

	"go.uber.org/multierr"
)

// teeWriter copies each log line to all outputs. A failing output does not
// stop the others; its error is reported together with the rest.
type teeWriter struct {
	outputs []io.Writer
}

func newTeeWriter(outputs ...io.Writer) *teeWriter {
	return &teeWriter{outputs: outputs}
}

func (t *teeWriter) Write(p []byte) (int, error) {
	var err error
	for _, out := range t.outputs {
		if _, wErr := out.Write(p); wErr != nil {
			err = multierr.Append(err, wErr)
		}
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
