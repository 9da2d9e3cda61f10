package model

import "time"

// Config holds all runtime settings
type Config struct {
	Portal       PortalConfig       `yaml:"portal" mapstructure:"portal"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`
	Tools        ToolsConfig        `yaml:"tools" mapstructure:"tools"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// PortalConfig describes the listing site
type PortalConfig struct {
	HomeURL    string `yaml:"home_url" mapstructure:"home_url"`       // Fetched once to obtain session cookies
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`       // Scheme and host prepended to relative links
	SearchPath string `yaml:"search_path" mapstructure:"search_path"` // Results page path and fixed query
	PageSize   int    `yaml:"page_size" mapstructure:"page_size"`     // Rows per list page (offset step)
}

// HTTPConfig controls the portal client
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRedirects  int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// RateLimitingConfig bounds request rate against the portal
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig controls the HTML page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StorageConfig locates the record datastore and the downloaded documents
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`
	DownloadDir  string `yaml:"download_dir" mapstructure:"download_dir"`
}

// ToolsConfig names the external analyzers
type ToolsConfig struct {
	PDFInfo   string `yaml:"pdfinfo" mapstructure:"pdfinfo"`
	TIFFInfo  string `yaml:"tiffinfo" mapstructure:"tiffinfo"`
	MediaInfo string `yaml:"mediainfo" mapstructure:"mediainfo"`
}

// OutputConfig controls logging and reports
type OutputConfig struct {
	Verbose    bool   `yaml:"verbose" mapstructure:"verbose"`
	LogLevel   string `yaml:"log_level" mapstructure:"log_level"`
	ReportPath string `yaml:"report_path,omitempty" mapstructure:"report_path"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			HomeURL:    "http://openinfo.gov.bc.ca/",
			BaseURL:    "http://www.openinfo.gov.bc.ca",
			SearchPath: "/ibc/search/results.page?config=ibc&P110=dc.subject:FOI%20Request&P110=high_level_subject:FOI%20Request&sortid=1&rc=1&as_ft=i&as_filetype=html",
			PageSize:   100,
		},
		HTTP: HTTPConfig{
			Timeout:      60 * time.Second,
			UserAgent:    "openinfo/0.1 (+https://github.com/ppiankov/openinfo)",
			MaxRedirects: 5,
			MaxBodyBytes: 512 << 20,
			MaxRetries:   3,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Cache: CacheConfig{
			Enabled:   false,
			MemoryTTL: 15 * time.Minute,
			DiskDir:   "_cache",
			DiskTTL:   24 * time.Hour,
		},
		Storage: StorageConfig{
			DatabasePath: "openinfo.db",
			DownloadDir:  "_downloads",
		},
		Tools: ToolsConfig{
			PDFInfo:   "pdfinfo",
			TIFFInfo:  "tiffinfo",
			MediaInfo: "mediainfo",
		},
		Output: OutputConfig{
			LogLevel: "info",
		},
	}
}
