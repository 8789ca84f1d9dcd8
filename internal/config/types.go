package config

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// AuthConfig holds token issuance settings.
type AuthConfig struct {
	Secret           string `yaml:"secret" koanf:"secret"`
	AccessTTLMinutes int    `yaml:"access_ttl_minutes" koanf:"access_ttl_minutes"`
	RefreshTTLHours  int    `yaml:"refresh_ttl_hours" koanf:"refresh_ttl_hours"`
}

// UploadConfig holds file upload policy.
type UploadConfig struct {
	MaxSizeMB int      `yaml:"max_size_mb" koanf:"max_size_mb"`
	Allowed   []string `yaml:"allowed" koanf:"allowed"` // doublestar patterns matched against filenames
}

// WebConfig declares how the UI bundle is served.
type WebConfig struct {
	// DistDir points at an externally built asset bundle. Empty means
	// serve the assets embedded in the binary.
	DistDir string `yaml:"dist_dir" koanf:"dist_dir"`
}

// Config is the top-level taskhive configuration, corresponding to .taskhive.yml.
type Config struct {
	DataDir string       `yaml:"data_dir" koanf:"data_dir"`
	Server  ServerConfig `yaml:"server" koanf:"server"`
	Auth    AuthConfig   `yaml:"auth" koanf:"auth"`
	Uploads UploadConfig `yaml:"uploads" koanf:"uploads"`
	Web     WebConfig    `yaml:"web" koanf:"web"`
	Log     LogConfig    `yaml:"log" koanf:"log"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`   // debug, info, warn, error
	Pretty bool   `yaml:"pretty" koanf:"pretty"` // console writer instead of JSON
}
