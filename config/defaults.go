package config

const (
	defaultConfigPath  = "~/.config/diarize-transcriber/config.toml"
	projectConfigFile  = "transcriber.toml"
	defaultSourcesDir  = "./sources"
	defaultOutputDir   = "./output"
	defaultCachePath   = "~/.cache/diarize-transcriber/chunks.db"
	defaultProvider    = "openai-diarize"
	defaultTimeout     = 600
	defaultMaxSeconds  = 1400
	defaultTarget      = 1300
	defaultMinFraction = 0.10
	defaultWorkers     = 1
	defaultFFmpeg      = "ffmpeg"
	defaultFFprobe     = "ffprobe"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourcesDir: defaultSourcesDir,
			OutputDir:  defaultOutputDir,
		},
		OpenAI: OpenAI{
			Provider:       defaultProvider,
			TimeoutSeconds: defaultTimeout,
		},
		Chunking: Chunking{
			MaxSeconds:    defaultMaxSeconds,
			TargetSeconds: defaultTarget,
			MinFraction:   defaultMinFraction,
			Workers:       defaultWorkers,
		},
		Cache: Cache{
			Path: defaultCachePath,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
