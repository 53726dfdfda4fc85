package config

const (
	defaultStateDir            = "~/.local/share/signagerec"
	defaultLogDir              = "~/.local/share/signagerec/logs"
	defaultStartMarker         = "tv-flag.trigger"
	defaultBusyMarker          = "tv-recording.flag"
	defaultDoneMarker          = "tv-recorded.trigger"
	defaultFailedMarker        = "tv-failed.trigger"
	defaultLockFile            = "signagerec.lock"
	defaultOutputFile          = "output.mp4"
	defaultDurationSelector    = `input[type="hidden"][name="duration"]`
	defaultDurationWait        = 10
	defaultNavigationTimeout   = 60
	defaultCacheBustParam      = "_"
	defaultDisplayWidth        = 1920
	defaultDisplayHeight       = 1080
	defaultLaunchTimeout       = 30
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultFramerate           = 30
	defaultCodec               = "libx264"
	defaultPixelFormat         = "yuv420p"
	defaultFFmpegLogLevel      = "error"
	defaultCaptureGrace        = 30
	defaultVerifyTolerance     = 2.0
	defaultDurationPolicy      = DurationPolicyReject
	defaultMinDurationSeconds  = 1
	defaultHistoryPath         = "~/.local/share/signagerec/history.db"
	defaultHistoryKeep         = 500
	defaultLogFormat           = "console"
	defaultNtfyTimeout         = 10
	defaultLogLevel            = "info"
	defaultContentURLEnv       = "SIGNAGEREC_CONTENT_URL"
	defaultDisplayEnv          = "DISPLAY"
	defaultDisplayFallbackName = ":99"
)

// Duration policies applied when the content source reports a non-positive length.
const (
	DurationPolicyReject = "reject"
	DurationPolicyClamp  = "clamp"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Markers: Markers{
			Start:  defaultStartMarker,
			Busy:   defaultBusyMarker,
			Done:   defaultDoneMarker,
			Failed: defaultFailedMarker,
			Lock:   defaultLockFile,
			Output: defaultOutputFile,
		},
		Content: Content{
			DurationSelector:  defaultDurationSelector,
			DurationWait:      defaultDurationWait,
			NavigationTimeout: defaultNavigationTimeout,
			CacheBustParam:    defaultCacheBustParam,
		},
		Display: Display{
			Width:  defaultDisplayWidth,
			Height: defaultDisplayHeight,
		},
		Browser: Browser{
			LaunchTimeout: defaultLaunchTimeout,
		},
		Capture: Capture{
			FFmpegBinary:           defaultFFmpegBinary,
			FFprobeBinary:          defaultFFprobeBinary,
			Framerate:              defaultFramerate,
			Codec:                  defaultCodec,
			PixelFormat:            defaultPixelFormat,
			LogLevel:               defaultFFmpegLogLevel,
			GraceSeconds:           defaultCaptureGrace,
			Verify:                 true,
			VerifyToleranceSeconds: defaultVerifyTolerance,
		},
		Policy: Policy{
			DurationPolicy:     defaultDurationPolicy,
			MinDurationSeconds: defaultMinDurationSeconds,
			ClearStaleDone:     true,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
			Keep:    defaultHistoryKeep,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
