package providers

import (
	"errors"
	"strings"
	"testing"
)

func TestScanSSE(t *testing.T) {
	body := ": keepalive\n" +
		"event: chunk\n" +
		"data: {\"a\":1}\n" +
		"\n" +
		"data: {\"a\":2}\n" +
		"\n" +
		"data: [DONE]\n" +
		"data: {\"a\":3}\n"

	var got []string
	err := ScanSSE(strings.NewReader(body), func(data string) error {
		got = append(got, data)
		return nil
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events (scan stops at [DONE]), got %d: %v", len(got), got)
	}
	if got[0] != `{"a":1}` || got[1] != `{"a":2}` {
		t.Errorf("unexpected events: %v", got)
	}
}

func TestScanSSEYieldError(t *testing.T) {
	boom := errors.New("boom")
	err := ScanSSE(strings.NewReader("data: x\n"), func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected yield error, got %v", err)
	}
}

func TestScanSSEEmptyStream(t *testing.T) {
	err := ScanSSE(strings.NewReader(""), func(string) error {
		t.Fatal("yield must not be called")
		return nil
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
