package config

// DefaultAllowedUploads are filename patterns accepted by default.
var DefaultAllowedUploads = []string{
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.pdf",
	"*.txt",
	"*.md",
	"*.csv",
	"*.zip",
	"*.{doc,docx,xls,xlsx,ppt,pptx}",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "data",
		Server: ServerConfig{
			Port:     8080,
			AllowAll: false,
		},
		Auth: AuthConfig{
			AccessTTLMinutes: 15,
			RefreshTTLHours:  24 * 7,
		},
		Uploads: UploadConfig{
			MaxSizeMB: 25,
			Allowed:   DefaultAllowedUploads,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}
