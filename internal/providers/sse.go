package providers

import (
	"bufio"
	"io"
	"strings"
)

// sseDone is the sentinel OpenAI-style streams send after the last chunk.
const sseDone = "[DONE]"

// maxSSELineBytes bounds a single event line. Reasoning models can emit
// large final chunks carrying full usage blocks.
const maxSSELineBytes = 1 << 20

// ScanSSE reads a text/event-stream body and calls yield once per data
// payload, in order. Comment lines, event names and blank separators are
// skipped; the [DONE] sentinel ends the scan cleanly. yield returning an
// error aborts the scan and surfaces that error.
func ScanSSE(r io.Reader, yield func(data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxSSELineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == sseDone {
			return nil
		}
		if err := yield(data); err != nil {
			return err
		}
	}
	return scanner.Err()
}
