package trigger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// FileState describes one file at snapshot time.
type FileState struct {
	Name    string
	Path    string
	Present bool
	Size    int64
	ModTime time.Time
	// Payload holds the first bytes of a marker file; empty for the output video.
	Payload string
}

// State is a point-in-time view of the markers and output video.
type State struct {
	Markers map[Marker]FileState
	Output  FileState
}

// Phase summarises the protocol position implied by the markers.
func (s State) Phase() string {
	switch {
	case s.Markers[Busy].Present:
		return "recording"
	case s.Markers[Start].Present:
		return "requested"
	case s.Markers[Done].Present:
		return "recorded"
	case s.Markers[Failed].Present:
		return "failed"
	default:
		return "idle"
	}
}

const payloadPreview = 512

// State snapshots every marker and the output video.
func (s *FileStore) State() (State, error) {
	state := State{Markers: make(map[Marker]FileState, len(Markers))}
	for _, m := range Markers {
		fileState, err := inspect(s.name(m), s.Path(m), true)
		if err != nil {
			return State{}, fmt.Errorf("inspect %s marker: %w", m, err)
		}
		state.Markers[m] = fileState
	}
	output, err := inspect(s.names.Output, s.OutputPath(), false)
	if err != nil {
		return State{}, fmt.Errorf("inspect output: %w", err)
	}
	state.Output = output
	return state, nil
}

func inspect(name, path string, readPayload bool) (FileState, error) {
	result := FileState{Name: name, Path: path}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return result, err
	}
	result.Present = true
	result.Size = info.Size()
	result.ModTime = info.ModTime()
	if !readPayload || info.Size() == 0 {
		return result, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return result, err
	}
	defer file.Close()
	buf := make([]byte, payloadPreview)
	n, _ := file.Read(buf)
	result.Payload = string(buf[:n])
	return result, nil
}
