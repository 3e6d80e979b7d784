package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeLog(t *testing.T, lines []string, trailingNewline bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeder.log")
	body := strings.Join(lines, "\n")
	if trailingNewline {
		body += "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func numbered(n int, width int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("%0*d", width, i+1)
	}
	return lines
}

func TestRead_Tail(t *testing.T) {
	all := numbered(10, 2)

	cases := []struct {
		name     string
		maxLines int
		trailing bool
		want     []string
	}{
		{"every line when zero", 0, true, all},
		{"every line when negative", -3, true, all},
		{"last four", 4, true, all[6:]},
		{"last four without final newline", 4, false, all[6:]},
		{"exact count", 10, true, all},
		{"more than available", 25, false, all},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Read(writeLog(t, all, tc.trailing), tc.maxLines)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Read = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRead_SpansChunks(t *testing.T) {
	// 3000 lines of 40 bytes each is several chunks.
	all := numbered(3000, 39)
	path := writeLog(t, all, true)

	got, err := Read(path, 1500)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1500 {
		t.Fatalf("len = %d, want 1500", len(got))
	}
	if got[0] != all[1500] || got[len(got)-1] != all[2999] {
		t.Fatalf("tail = %q..%q, want %q..%q", got[0], got[len(got)-1], all[1500], all[2999])
	}
}

func TestRead_EmptyFileAndCRLF(t *testing.T) {
	if got, err := Read(writeLog(t, nil, false), 5); err != nil || got != nil {
		t.Fatalf("Read(empty) = %v, %v; want nil, nil", got, err)
	}
	got, err := Read(writeLog(t, []string{"a\r", "b\r"}, true), 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Read = %q, want [a b]", got)
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || lines != nil {
		t.Fatalf("Read(missing) = %v, %v; want nil, nil", lines, err)
	}
}

func TestFormat(t *testing.T) {
	stamp := time.Date(2026, 5, 1, 12, 30, 5, 0, time.UTC)
	clock := stamp.Local().Format("15:04:05")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text passes through",
			input:    "panic: something",
			expected: "panic: something",
		},
		{
			name:     "empty line",
			input:    "",
			expected: "",
		},
		{
			name:     "slog json with attrs sorted",
			input:    `{"time":"2026-05-01T12:30:05Z","level":"WARN","msg":"change poll failed","point_id":"p1","component":"stream"}`,
			expected: clock + " WARN  change poll failed component=stream point_id=p1",
		},
		{
			name:     "numeric attr",
			input:    `{"time":"2026-05-01T12:30:05Z","level":"INFO","msg":"initial point list loaded","received":3}`,
			expected: clock + " INFO  initial point list loaded received=3",
		},
		{
			name:     "no time",
			input:    `{"level":"ERROR","msg":"boom"}`,
			expected: "ERROR boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.input); got != tt.expected {
				t.Errorf("Format() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatLines(t *testing.T) {
	input := []string{`{"level":"INFO","msg":"a"}`, "raw"}
	got := FormatLines(input)
	want := []string{"INFO  a", "raw"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FormatLines() = %q, want %q", got, want)
	}
}
