package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Content configuration
	ArticlesDir string `long:"articles-dir" env:"ARTICLES_DIR" default:"./articles" description:"Directory containing article YAML files"`
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/blogpub.db" description:"Path to the sqlite state database"`
	SitemapPath string `long:"sitemap-path" env:"SITEMAP_PATH" default:"./public/sitemap.xml" description:"Path where the generated sitemap.xml is written"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" default:"https://ипотекакрым.рф" description:"Public base URL of the site"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for task processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Scheduler interval in seconds"`
	PublishDelay      int    `long:"publish-delay" env:"PUBLISH_DELAY" default:"3" description:"Delay in seconds before the one-shot publication run"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// External collaborators
	NewsletterUrl string `long:"newsletter-url" env:"NEWSLETTER_URL" description:"Newsletter dispatch endpoint"`
	IndexNowUrl   string `long:"indexnow-url" env:"INDEXNOW_URL" description:"IndexNow notification endpoint"`
	IndexNowKey   string `long:"indexnow-key" env:"INDEXNOW_KEY" description:"IndexNow verification key"`
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for sitemap caching (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"BlogPub/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Moscow)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ArticlesDir:       raw.ArticlesDir,
		DBPath:            raw.DBPath,
		SitemapPath:       raw.SitemapPath,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		PublishDelay:      raw.PublishDelay,
		APIAccessKey:      raw.APIAccessKey,
		NewsletterUrl:     raw.NewsletterUrl,
		IndexNowUrl:       raw.IndexNowUrl,
		IndexNowKey:       raw.IndexNowKey,
		RedisAddr:         raw.RedisAddr,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
