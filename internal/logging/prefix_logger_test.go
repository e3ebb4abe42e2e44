package logging

import (
	"bytes"
	"testing"
)

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := WithPrefix(NewConsoleLoggerTo(&buf, true), "job 1234")

	logger.Info("%d rows processed in %s", 2, "orders")
	logger.Warn("50% of rows skipped")
	logger.Error("insert into %s failed", "orders")

	want := "[job 1234] 2 rows processed in orders\n" +
		"[WARN] [job 1234] 50% of rows skipped\n" +
		"[ERROR] [job 1234] insert into orders failed\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWithPrefix_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	WithPrefix(nil, "x")
}
