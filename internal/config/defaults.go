package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/unionkb/data/db/documents.db"
	}
	if cfg.Storage.CounterDBPath == "" {
		cfg.Storage.CounterDBPath = "/usr/local/var/unionkb/data/db/counters.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/unionkb/data/indices/vectors"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.ChunkSize == 0 {
		cfg.Search.ChunkSize = 500
	}
	if cfg.Search.ChunkOverlap == 0 {
		cfg.Search.ChunkOverlap = 50
	}
	if cfg.Search.MinChunkSize == 0 {
		cfg.Search.MinChunkSize = 50
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 10
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 100
	}
	if cfg.Search.Alpha == 0 {
		cfg.Search.Alpha = 0.5
	}
	if cfg.Search.CandidateRatio == 0 {
		cfg.Search.CandidateRatio = 2
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 60
	}
	if cfg.RateLimit.TokensPerHour == 0 {
		cfg.RateLimit.TokensPerHour = 500000
	}
	if cfg.RateLimit.CostCentsPerDay == 0 {
		cfg.RateLimit.CostCentsPerDay = 5000
	}
	if cfg.RateLimit.AlertCooldownSeconds == 0 {
		cfg.RateLimit.AlertCooldownSeconds = 3600
	}
	if cfg.Answer.TemplateID == "" {
		cfg.Answer.TemplateID = "default"
	}
	if cfg.Answer.MaxTokens == 0 {
		cfg.Answer.MaxTokens = 1024
	}
	if cfg.Answer.Temperature == 0 {
		cfg.Answer.Temperature = 0.2
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".json", ".csv", ".pdf", ".docx", ".xlsx", ".eml"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
