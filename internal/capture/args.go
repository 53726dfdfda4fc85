package capture

import (
	"strconv"
	"strings"
)

// Settings describes the encoder invocation shared by every capture.
type Settings struct {
	Binary      string
	Display     string
	Resolution  string
	Framerate   int
	Codec       string
	PixelFormat string
	LogLevel    string
}

// BuildArgs returns the ffmpeg argument list for a capture of seconds length
// written to output.
func BuildArgs(s Settings, seconds int, output string) []string {
	args := []string{"-y"}
	if level := strings.TrimSpace(s.LogLevel); level != "" {
		args = append(args, "-loglevel", level)
	}
	args = append(args,
		"-video_size", s.Resolution,
		"-framerate", strconv.Itoa(s.Framerate),
		"-f", "x11grab",
		"-i", s.Display,
		"-c:v", s.Codec,
		"-pix_fmt", s.PixelFormat,
		"-t", strconv.Itoa(seconds),
		output,
	)
	return args
}
