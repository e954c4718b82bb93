package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}
	if err := os.WriteFile(logPath, []byte(content.String()), 0o644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, expectedAll},
		{"read all (negative)", -1, expectedAll},
		{"read partial (5)", 5, expectedAll[5:]},
		{"read exactly all (10)", 10, expectedAll},
		{"read more than exists (20)", 20, expectedAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read(missing) = %v, %v, want nil, nil", got, err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Entry
	}{
		{
			name: "named logger with fields",
			line: "2026-10-18T19:02:11.512+0530\tWARN\tstate\tstate/pandals.go:88\tload pandals failed\t{\"error\": \"boom\"}",
			want: Entry{
				Time:    "2026-10-18T19:02:11.512+0530",
				Level:   "WARN",
				Logger:  "state",
				Caller:  "state/pandals.go:88",
				Message: "load pandals failed",
				Fields:  "{\"error\": \"boom\"}",
			},
		},
		{
			name: "root logger without fields",
			line: "2026-10-18T19:02:11.512+0530\tINFO\tapp/app.go:40\tstarting",
			want: Entry{
				Time:    "2026-10-18T19:02:11.512+0530",
				Level:   "INFO",
				Caller:  "app/app.go:40",
				Message: "starting",
			},
		},
		{
			name: "no caller",
			line: "2026-10-18T19:02:11.512+0530\tDEBUG\tplain message",
			want: Entry{Time: "2026-10-18T19:02:11.512+0530", Level: "DEBUG", Message: "plain message"},
		},
		{
			name: "stack trace continuation",
			line: "\tgithub.com/five82/pandals/internal/app.Run",
			want: Entry{Message: "\tgithub.com/five82/pandals/internal/app.Run"},
		},
		{
			name: "unknown level",
			line: "a\tb\tc",
			want: Entry{Message: "a\tb\tc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.line); got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}
