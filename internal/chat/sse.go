package chat

import (
	"bufio"
	"bytes"
	"context"
	"io"
)

// maxSSELine bounds a single "data:" line
const maxSSELine = 1024 * 1024

// readSSE reads SSE-formatted lines from body and hands each data payload to
// onData. It returns when the stream ends, ctx is cancelled, or onData fails.
func readSSE(ctx context.Context, body io.Reader, onData func(data []byte) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()

		// Skip empty lines and comments
		if len(line) == 0 || line[0] == ':' {
			continue
		}

		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		if err := onData(data); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return classifyError(err)
	}
	return ctx.Err()
}
