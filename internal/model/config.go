package model

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the complete crawl configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Crawl        CrawlConfig        `yaml:"crawl" mapstructure:"crawl"`
	Dedup        DedupConfig        `yaml:"dedup" mapstructure:"dedup"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// HTTPConfig configures upstream HTTP calls
type HTTPConfig struct {
	SearchTimeout time.Duration `yaml:"search_timeout" mapstructure:"search_timeout"`
	ImageTimeout  time.Duration `yaml:"image_timeout" mapstructure:"image_timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitingConfig throttles requests per upstream host
type RateLimitingConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	PageDelay         time.Duration `yaml:"page_delay" mapstructure:"page_delay"` // Pause between pages of one keyword
}

// RetryConfig bounds retries of transient upstream failures
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

// CacheConfig configures the response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds keyword-level parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CrawlConfig describes what to crawl
type CrawlConfig struct {
	Source        string        `yaml:"source" mapstructure:"source"` // kakao or naver
	Regions       []string      `yaml:"regions" mapstructure:"regions"`
	Themes        []string      `yaml:"themes" mapstructure:"themes"`
	MaxPages      int           `yaml:"max_pages" mapstructure:"max_pages"`
	MaxImages     int           `yaml:"max_images" mapstructure:"max_images"`
	FetchImages   bool          `yaml:"fetch_images" mapstructure:"fetch_images"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"` // Drop image URLs disallowed by robots.txt
	RunTimeout    time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`
}

// DedupConfig holds the similarity and proximity thresholds.
// Name, address and core thresholds are on the 0-100 token-set scale;
// GPS tolerances are in decimal degrees.
type DedupConfig struct {
	NameThreshold       float64  `yaml:"name_threshold" mapstructure:"name_threshold"`
	AddressThreshold    float64  `yaml:"address_threshold" mapstructure:"address_threshold"`
	CoreThreshold       float64  `yaml:"core_threshold" mapstructure:"core_threshold"`
	SimilarGPSTolerance float64  `yaml:"similar_gps_tolerance" mapstructure:"similar_gps_tolerance"`
	CoreGPSTolerance    float64  `yaml:"core_gps_tolerance" mapstructure:"core_gps_tolerance"`
	CoreSuffixes        []string `yaml:"core_suffixes" mapstructure:"core_suffixes"`
}

// OutputConfig configures export and console output
type OutputConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultCoreSuffixes are generic facility words stripped by core keyword extraction
var DefaultCoreSuffixes = []string{
	"entrance", "exit", "parking lot", "footpath", "library", "museum annex",
	"ticket office", "playground", "main gate", "back gate", "futsal court", "community center",
	"풋살장", "산책길", "입구", "주차장", "문화센터", "도서관", "미술관", "정문", "후문", "매표소", "놀이터",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	cacheDir := ".placecrawl-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".placecrawl", "cache")
	}

	return &Config{
		HTTP: HTTPConfig{
			SearchTimeout: 10 * time.Second,
			ImageTimeout:  15 * time.Second,
			UserAgent:     "placecrawl/0.1 (+https://github.com/ppiankov/placecrawl)",
			MaxBodyBytes:  2_000_000,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 10,
			BurstSize:         5,
			PageDelay:         300 * time.Millisecond,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Crawl: CrawlConfig{
			Source:      "kakao",
			Regions:     []string{"서울", "경기"},
			Themes:      []string{"한옥카페", "오션뷰 카페", "브런치 맛집", "베이커리 카페", "수목원", "자연휴양림", "미술관", "박물관", "문화 유적지", "테마파크", "호수공원"},
			MaxPages:    5,
			MaxImages:   3,
			FetchImages: true,
			RunTimeout:  30 * time.Minute,
		},
		Dedup: DefaultDedupConfig(),
		Output: OutputConfig{
			Path: "places.csv",
		},
	}
}

// DefaultDedupConfig returns the default deduplication thresholds
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		NameThreshold:       85,
		AddressThreshold:    80,
		CoreThreshold:       70,
		SimilarGPSTolerance: 0.0005, // ~50m
		CoreGPSTolerance:    0.001,  // ~100m
		CoreSuffixes:        append([]string(nil), DefaultCoreSuffixes...),
	}
}

// Keywords expands regions x themes into search keywords, region-major
func (c CrawlConfig) Keywords() []string {
	var keywords []string
	seen := make(map[string]bool)
	for _, region := range c.Regions {
		for _, theme := range c.Themes {
			kw := joinNonEmpty(region, theme)
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
