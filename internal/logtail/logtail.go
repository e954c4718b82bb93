package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines
// and no error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one line of the console encoder output, split into its columns.
// Lines that do not look like encoder output land in Message whole.
type Entry struct {
	Time    string
	Level   string
	Logger  string
	Caller  string
	Message string
	Fields  string // trailing JSON object, if any
}

var levels = map[string]struct{}{
	"DEBUG": {}, "INFO": {}, "WARN": {}, "ERROR": {},
	"DPANIC": {}, "PANIC": {}, "FATAL": {},
}

// Parse splits a tab-separated console log line.
func Parse(line string) Entry {
	cols := strings.Split(line, "\t")
	if len(cols) < 3 {
		return Entry{Message: line}
	}
	if _, ok := levels[cols[1]]; !ok {
		return Entry{Message: line}
	}
	e := Entry{Time: cols[0], Level: cols[1]}
	rest := cols[2:]

	switch {
	case isCaller(rest[0]):
		e.Caller, rest = rest[0], rest[1:]
	case len(rest) > 1 && isCaller(rest[1]):
		e.Logger, e.Caller, rest = rest[0], rest[1], rest[2:]
	}
	if n := len(rest); n > 1 && strings.HasPrefix(rest[n-1], "{") {
		e.Fields, rest = rest[n-1], rest[:n-1]
	}
	e.Message = strings.Join(rest, " ")
	return e
}

func isCaller(col string) bool {
	i := strings.LastIndex(col, ".go:")
	return i > 0 && !strings.ContainsAny(col, " \t")
}
