// Package deps resolves the external programs a capture needs.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// ChromeCandidates lists the executable names tried when no Chrome path is configured.
var ChromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
}

// Requirement defines an external program signagerec relies on. Commands are
// tried in order and the first one found on PATH satisfies the requirement.
type Requirement struct {
	Name        string
	Commands    []string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Satisfied reports whether the requirement is met or may be skipped.
func (s Status) Satisfied() bool {
	return s.Available || s.Optional
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	var tried []string
	for _, cmd := range req.Commands {
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		tried = append(tried, cmd)
		path, err := exec.LookPath(cmd)
		if err != nil {
			continue
		}
		status.Command = cmd
		status.Path = path
		status.Available = true
		return status
	}
	switch len(tried) {
	case 0:
		status.Detail = "command not configured"
	case 1:
		status.Command = tried[0]
		status.Detail = fmt.Sprintf("binary %q not found", tried[0])
	default:
		status.Command = tried[0]
		status.Detail = fmt.Sprintf("none of %s found", strings.Join(tried, ", "))
	}
	return status
}

// ChromeCommands returns the commands to try for the browser. A configured
// execPath is authoritative.
func ChromeCommands(execPath string) []string {
	if execPath = strings.TrimSpace(execPath); execPath != "" {
		return []string{execPath}
	}
	return append([]string(nil), ChromeCandidates...)
}

// Requirements returns the programs a capture run depends on.
func Requirements(ffmpeg, ffprobe, chromeExecPath string, verify bool) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Commands:    []string{ffmpeg},
			Description: "Required for screen capture",
		},
		{
			Name:        "FFprobe",
			Commands:    []string{ffprobe},
			Description: "Verifies capture length",
			Optional:    !verify,
		},
		{
			Name:        "Chrome",
			Commands:    ChromeCommands(chromeExecPath),
			Description: "Renders the slideshow",
		},
	}
}
