package config

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Host    HostConfig
	View    ViewConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

// HostConfig locates the chat frontend's database. An empty DBPath leaves
// the host adapter unconfigured; favorites still work, previews and
// validation degrade.
type HostConfig struct {
	DBPath string
}

type ViewConfig struct {
	PageSize int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4015,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Host: HostConfig{
			DBPath: defaultHostDBPath(),
		},
		View: ViewConfig{
			PageSize: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.favmark.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/favmark/config.json.
//
// Environment variables (FAVMARK_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
