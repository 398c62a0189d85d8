package config

// DefaultMaxUploadBytes caps multipart uploads accepted by the server.
const DefaultMaxUploadBytes = 32 << 20

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/doctext/data/db/results.db"
	}
	cfg.OCR = cfg.OCR.WithDefaults()
	if cfg.Extract.Workers < 0 {
		cfg.Extract.Workers = 0
	}
	if cfg.Extract.MaxUploadBytes <= 0 {
		cfg.Extract.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".log", ".csv", ".pdf", ".docx", ".png", ".jpg", ".jpeg", ".tif", ".tiff"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
