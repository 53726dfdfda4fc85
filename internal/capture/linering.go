package capture

import (
	"strings"
	"sync"
)

const stderrTailLines = 64

// lineRing keeps the most recent lines written to it.
type lineRing struct {
	mu    sync.Mutex
	lines []string
	head  int
	count int
}

func newLineRing(capacity int) *lineRing {
	if capacity < 1 {
		capacity = stderrTailLines
	}
	return &lineRing{lines: make([]string, capacity)}
}

func (r *lineRing) Add(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// Lines returns the retained lines oldest first.
func (r *lineRing) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, r.count)
	start := (r.head - r.count + len(r.lines)) % len(r.lines)
	for i := 0; i < r.count; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}
