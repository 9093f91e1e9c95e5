package main

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "File"}, [][]string{{"recording-1", "recording-1.mp4"}, {"recording-2"}})
	for _, want := range []string{"recording-1.mp4", "recording-2", "╭"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderTable() missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil) != "" {
		t.Error("renderTable() without headers should be empty")
	}
}
