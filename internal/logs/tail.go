package logs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"signagerec/internal/logging"
)

// Matcher selects log lines; nil matches everything.
type Matcher func(line string) bool

// MatchRunID keeps JSON lines whose run_id starts with prefix. The console
// header shows only the first UUID block, so a prefix is what operators have.
func MatchRunID(prefix string) Matcher {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	return func(line string) bool {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return false
		}
		id, _ := record[logging.FieldRunID].(string)
		return strings.HasPrefix(id, prefix)
	}
}

func (m Matcher) keep(line string) bool {
	return m == nil || m(line)
}

// Last returns up to limit trailing lines accepted by match and the offset of
// the end of the file. A missing file yields no lines and offset 0.
func Last(path string, limit int, match Matcher) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	if limit <= 0 {
		return nil, info.Size(), nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if !match.keep(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, info.Size(), nil
}

// Follow calls emit for every complete line appended after offset until ctx
// ends. A truncated or rotated file is re-read from the start.
func Follow(ctx context.Context, path string, offset int64, match Matcher, emit func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()
	// Watching the directory survives the file being recreated.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch log directory: %w", err)
	}
	name := filepath.Base(path)

	var partial []byte
	drain := func() error {
		next, rest, err := readFrom(path, offset, partial, match, emit)
		if err != nil {
			return err
		}
		offset, partial = next, rest
		return nil
	}
	if err := drain(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher channel closed")
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				offset, partial = 0, nil
				continue
			}
			if err := drain(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			return fmt.Errorf("watch log file: %w", err)
		}
	}
}

func readFrom(path string, offset int64, partial []byte, match Matcher, emit func(string)) (int64, []byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil, nil
		}
		return offset, partial, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, partial, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset, partial = 0, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, partial, fmt.Errorf("seek log file: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return offset, partial, fmt.Errorf("read log file: %w", err)
	}
	offset += int64(len(data))

	buf := append(partial, data...)
	for {
		newline := bytes.IndexByte(buf, '\n')
		if newline < 0 {
			break
		}
		line := string(buf[:newline])
		buf = buf[newline+1:]
		if match.keep(line) {
			emit(line)
		}
	}
	return offset, append([]byte(nil), buf...), nil
}
