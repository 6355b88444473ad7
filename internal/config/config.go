package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"RingsideSync/internal/classifier"
	"RingsideSync/internal/domain"
)

const (
	configPathEnv     = "RINGSIDE_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Sources       []SourceConfig     `yaml:"sources"`
	Domains       DomainsConfig      `yaml:"domains"`
	Orchestrator  OrchestratorConfig `yaml:"orchestrator"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Quality       QualityConfig      `yaml:"quality"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Validator     ValidatorConfig    `yaml:"validator"`
	Cache         CacheConfig        `yaml:"cache"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Notifications NotificationConfig `yaml:"notifications"`
	Connectivity  ConnectivityConfig `yaml:"connectivity"`
	HTTP          HTTPConfig         `yaml:"http"`
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SourceConfig describes a single feed in the source catalog.
type SourceConfig struct {
	Name        string   `yaml:"name"`
	Endpoint    string   `yaml:"endpoint"`
	Tier        string   `yaml:"tier"`
	Format      string   `yaml:"format"`
	Domains     []string `yaml:"domains"`
	Categories  []string `yaml:"categories"`
	Promotions  []string `yaml:"promotions"`
	Reliability float64  `yaml:"reliability"`
}

// DomainConfig is the cadence and freshness policy of one sync domain.
type DomainConfig struct {
	Interval                   time.Duration `yaml:"interval"`
	MaxAge                     time.Duration `yaml:"maxAge"`
	MinSuccessfulSources       int           `yaml:"minSuccessfulSources"`
	RequireElapsedSinceSuccess bool          `yaml:"requireElapsedSinceSuccess"`
}

// DomainsConfig groups the four sync domains.
type DomainsConfig struct {
	Critical    DomainConfig `yaml:"critical"`
	News        DomainConfig `yaml:"news"`
	Roster      DomainConfig `yaml:"roster"`
	Merchandise DomainConfig `yaml:"merchandise"`
}

// For returns the policy of the requested domain.
func (d DomainsConfig) For(sd domain.SyncDomain) DomainConfig {
	switch sd {
	case domain.DomainCritical:
		return d.Critical
	case domain.DomainNews:
		return d.News
	case domain.DomainRoster:
		return d.Roster
	case domain.DomainMerchandise:
		return d.Merchandise
	}
	return DomainConfig{}
}

// OrchestratorConfig controls the base tick of the sync loop.
type OrchestratorConfig struct {
	Tick time.Duration `yaml:"tick"`
}

// FetchConfig bounds network retrieval.
type FetchConfig struct {
	MaxConcurrent int           `yaml:"maxConcurrent"`
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
	RetryDelay    time.Duration `yaml:"retryDelay"`
	UserAgent     string        `yaml:"userAgent"`
	MaxBodyBytes  int64         `yaml:"maxBodyBytes"`
}

// Thresholds are the six quality alerting limits.
type Thresholds struct {
	MinSourceReliability  float64       `yaml:"minSourceReliability"`
	MaxContentAge         time.Duration `yaml:"maxContentAge"`
	MaxDuplicationRate    float64       `yaml:"maxDuplicationRate"`
	MinValidationPassRate float64       `yaml:"minValidationPassRate"`
	MinEngagement         float64       `yaml:"minEngagement"`
	MaxFetchLatency       time.Duration `yaml:"maxFetchLatency"`
}

// QualityConfig drives the quality monitor.
type QualityConfig struct {
	Tick           time.Duration `yaml:"tick"`
	AlertRetention time.Duration `yaml:"alertRetention"`
	EdgeTriggered  bool          `yaml:"edgeTriggered"`
	Thresholds     Thresholds    `yaml:"thresholds"`
	FeedbackURL    string        `yaml:"feedbackUrl"`
	FeedbackAPIKey string        `yaml:"feedbackApiKey"`
}

// ClassifierConfig carries the ordered keyword rules as data.
type ClassifierConfig struct {
	Rules            []RuleConfig        `yaml:"rules"`
	BreakingKeywords []string            `yaml:"breakingKeywords"`
	Promotions       map[string][]string `yaml:"promotions"`
}

// RuleConfig is one category rule; order in the list is precedence.
type RuleConfig struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// ValidatorConfig tunes the per-article checks.
type ValidatorConfig struct {
	SpamKeywords []string `yaml:"spamKeywords"`
}

// CacheConfig selects the CacheStore backend.
type CacheConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDb"`
}

// ArchiveConfig describes the optional SQL archive.
type ArchiveConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// ConnectivityConfig enables the reachability probe.
type ConnectivityConfig struct {
	ProbeURL      string        `yaml:"probeUrl"`
	ProbeInterval time.Duration `yaml:"probeInterval"`
}

// HTTPConfig is the listen address of the read API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = loaded
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

// LoadPath is Load with an explicit file; an empty path falls back to $RINGSIDE_CONFIG.
// Unlike Load, a file that cannot be read or parsed is an error.
func LoadPath(path string) (Config, error) {
	if path == "" {
		return Load(), nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadFile merges the YAML file at path over the defaults.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return mergeConfig(defaultConfig(), fileCfg), nil
}

// Validate rejects catalogs and thresholds the pipeline cannot run with.
func (c Config) Validate() error {
	seen := map[string]bool{}
	for _, src := range c.Sources {
		if src.Name == "" || src.Endpoint == "" {
			return fmt.Errorf("source %q: name and endpoint are required", src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("source %q defined twice", src.Name)
		}
		seen[src.Name] = true
		if !domain.Tier(src.Tier).Valid() {
			return fmt.Errorf("source %q: unknown tier %q", src.Name, src.Tier)
		}
		switch src.Format {
		case "", "auto", "rss", "atom", "json":
		default:
			return fmt.Errorf("source %q: unknown format %q", src.Name, src.Format)
		}
		if len(src.Domains) == 0 {
			return fmt.Errorf("source %q: at least one domain is required", src.Name)
		}
		for _, d := range src.Domains {
			if _, err := domain.ParseSyncDomain(d); err != nil {
				return fmt.Errorf("source %q: %w", src.Name, err)
			}
		}
		if src.Reliability < 0 || src.Reliability > 1 {
			return fmt.Errorf("source %q: reliability must be within [0,1]", src.Name)
		}
	}

	for _, d := range domain.AllDomains {
		if c.Domains.For(d).Interval <= 0 {
			return fmt.Errorf("domain %s: interval must be positive", d)
		}
	}

	if c.Fetch.MaxConcurrent <= 0 {
		return fmt.Errorf("fetch.maxConcurrent must be positive")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries must not be negative")
	}

	t := c.Quality.Thresholds
	for name, v := range map[string]float64{
		"minSourceReliability":  t.MinSourceReliability,
		"maxDuplicationRate":    t.MaxDuplicationRate,
		"minValidationPassRate": t.MinValidationPassRate,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("quality.thresholds.%s must be within [0,1]", name)
		}
	}

	for _, rule := range c.Classifier.Rules {
		if _, err := classifier.ParseCategory(rule.Category); err != nil {
			return err
		}
	}

	switch c.Cache.Backend {
	case "bolt", "redis":
	default:
		return fmt.Errorf("cache.backend must be bolt or redis, got %q", c.Cache.Backend)
	}

	switch c.Archive.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("archive.driver must be postgres or sqlite3, got %q", c.Archive.Driver)
	}

	return nil
}

// DomainSources converts the catalog entries into domain sources.
func (c Config) DomainSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, sc := range c.Sources {
		src := domain.Source{
			Name:        sc.Name,
			Endpoint:    sc.Endpoint,
			Tier:        domain.Tier(sc.Tier),
			Format:      sc.Format,
			Promotions:  append([]string(nil), sc.Promotions...),
			Reliability: sc.Reliability,
		}
		for _, d := range sc.Domains {
			if parsed, err := domain.ParseSyncDomain(d); err == nil {
				src.Domains = append(src.Domains, parsed)
			}
		}
		for _, cat := range sc.Categories {
			src.Categories = append(src.Categories, domain.Category(cat))
		}
		if src.Reliability == 0 {
			src.Reliability = defaultReliability(src.Tier)
		}
		out = append(out, src)
	}
	return out
}

// ClassifierRules converts the configured rules into classifier input.
func (c Config) ClassifierRules() classifier.Config {
	rules := make([]classifier.Rule, 0, len(c.Classifier.Rules))
	for _, rc := range c.Classifier.Rules {
		category, err := classifier.ParseCategory(rc.Category)
		if err != nil {
			continue
		}
		rules = append(rules, classifier.Rule{Category: category, Keywords: rc.Keywords})
	}
	return classifier.Config{
		Rules:            rules,
		BreakingKeywords: c.Classifier.BreakingKeywords,
		Promotions:       c.Classifier.Promotions,
	}
}

func defaultReliability(t domain.Tier) float64 {
	if t == domain.Tier1 {
		return 0.95
	}
	return 0.85
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Archive.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Cache.RedisAddr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	base.Domains.Critical = mergeDomain(base.Domains.Critical, override.Domains.Critical)
	base.Domains.News = mergeDomain(base.Domains.News, override.Domains.News)
	base.Domains.Roster = mergeDomain(base.Domains.Roster, override.Domains.Roster)
	base.Domains.Merchandise = mergeDomain(base.Domains.Merchandise, override.Domains.Merchandise)

	if override.Orchestrator.Tick > 0 {
		base.Orchestrator.Tick = override.Orchestrator.Tick
	}

	if override.Fetch.MaxConcurrent > 0 {
		base.Fetch.MaxConcurrent = override.Fetch.MaxConcurrent
	}
	if override.Fetch.Timeout > 0 {
		base.Fetch.Timeout = override.Fetch.Timeout
	}
	if override.Fetch.Retries > 0 {
		base.Fetch.Retries = override.Fetch.Retries
	}
	if override.Fetch.RetryDelay > 0 {
		base.Fetch.RetryDelay = override.Fetch.RetryDelay
	}
	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.MaxBodyBytes > 0 {
		base.Fetch.MaxBodyBytes = override.Fetch.MaxBodyBytes
	}

	if override.Quality.Tick > 0 {
		base.Quality.Tick = override.Quality.Tick
	}
	if override.Quality.AlertRetention > 0 {
		base.Quality.AlertRetention = override.Quality.AlertRetention
	}
	if override.Quality.EdgeTriggered {
		base.Quality.EdgeTriggered = true
	}
	if override.Quality.FeedbackURL != "" {
		base.Quality.FeedbackURL = override.Quality.FeedbackURL
	}
	if override.Quality.FeedbackAPIKey != "" {
		base.Quality.FeedbackAPIKey = override.Quality.FeedbackAPIKey
	}
	base.Quality.Thresholds = mergeThresholds(base.Quality.Thresholds, override.Quality.Thresholds)

	if len(override.Classifier.Rules) > 0 {
		base.Classifier.Rules = override.Classifier.Rules
	}
	if len(override.Classifier.BreakingKeywords) > 0 {
		base.Classifier.BreakingKeywords = override.Classifier.BreakingKeywords
	}
	if len(override.Classifier.Promotions) > 0 {
		base.Classifier.Promotions = override.Classifier.Promotions
	}

	if len(override.Validator.SpamKeywords) > 0 {
		base.Validator.SpamKeywords = override.Validator.SpamKeywords
	}

	if override.Cache.Backend != "" {
		base.Cache.Backend = override.Cache.Backend
	}
	if override.Cache.Path != "" {
		base.Cache.Path = override.Cache.Path
	}
	if override.Cache.RedisAddr != "" {
		base.Cache.RedisAddr = override.Cache.RedisAddr
	}
	if override.Cache.RedisPassword != "" {
		base.Cache.RedisPassword = override.Cache.RedisPassword
	}
	if override.Cache.RedisDB != 0 {
		base.Cache.RedisDB = override.Cache.RedisDB
	}

	if override.Archive.Driver != "" {
		base.Archive.Driver = override.Archive.Driver
	}
	if override.Archive.DSN != "" {
		base.Archive.DSN = override.Archive.DSN
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Connectivity.ProbeURL != "" {
		base.Connectivity.ProbeURL = override.Connectivity.ProbeURL
	}
	if override.Connectivity.ProbeInterval > 0 {
		base.Connectivity.ProbeInterval = override.Connectivity.ProbeInterval
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	return base
}

func mergeDomain(base, override DomainConfig) DomainConfig {
	if override.Interval > 0 {
		base.Interval = override.Interval
	}
	if override.MaxAge > 0 {
		base.MaxAge = override.MaxAge
	}
	if override.MinSuccessfulSources > 0 {
		base.MinSuccessfulSources = override.MinSuccessfulSources
	}
	if override.RequireElapsedSinceSuccess {
		base.RequireElapsedSinceSuccess = true
	}
	return base
}

func mergeThresholds(base, override Thresholds) Thresholds {
	if override.MinSourceReliability > 0 {
		base.MinSourceReliability = override.MinSourceReliability
	}
	if override.MaxContentAge > 0 {
		base.MaxContentAge = override.MaxContentAge
	}
	if override.MaxDuplicationRate > 0 {
		base.MaxDuplicationRate = override.MaxDuplicationRate
	}
	if override.MinValidationPassRate > 0 {
		base.MinValidationPassRate = override.MinValidationPassRate
	}
	if override.MinEngagement > 0 {
		base.MinEngagement = override.MinEngagement
	}
	if override.MaxFetchLatency > 0 {
		base.MaxFetchLatency = override.MaxFetchLatency
	}
	return base
}

// Default returns the built-in configuration.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	rules := classifier.DefaultConfig()
	ruleConfigs := make([]RuleConfig, 0, len(rules.Rules))
	for _, r := range rules.Rules {
		ruleConfigs = append(ruleConfigs, RuleConfig{Category: string(r.Category), Keywords: r.Keywords})
	}

	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Domains: DomainsConfig{
			Critical:    DomainConfig{Interval: 30 * time.Second, MaxAge: 24 * time.Hour, MinSuccessfulSources: 1},
			News:        DomainConfig{Interval: 5 * time.Minute, MaxAge: 24 * time.Hour, MinSuccessfulSources: 1},
			Roster:      DomainConfig{Interval: 24 * time.Hour, MaxAge: 24 * time.Hour, MinSuccessfulSources: 1, RequireElapsedSinceSuccess: true},
			Merchandise: DomainConfig{Interval: time.Hour, MaxAge: time.Hour, MinSuccessfulSources: 1},
		},
		Orchestrator: OrchestratorConfig{Tick: 30 * time.Second},
		Fetch: FetchConfig{
			MaxConcurrent: 3,
			Timeout:       30 * time.Second,
			Retries:       2,
			RetryDelay:    2 * time.Second,
			UserAgent:     "RingsideSync/1.0",
			MaxBodyBytes:  10 << 20,
		},
		Quality: QualityConfig{
			Tick:           time.Minute,
			AlertRetention: 30 * 24 * time.Hour,
			Thresholds: Thresholds{
				MinSourceReliability:  0.8,
				MaxContentAge:         24 * time.Hour,
				MaxDuplicationRate:    0.10,
				MinValidationPassRate: 0.90,
				MinEngagement:         0.70,
				MaxFetchLatency:       5 * time.Second,
			},
		},
		Classifier: ClassifierConfig{
			Rules:            ruleConfigs,
			BreakingKeywords: rules.BreakingKeywords,
			Promotions:       rules.Promotions,
		},
		Validator: ValidatorConfig{
			SpamKeywords: []string{"click here", "buy now", "free money", "guaranteed"},
		},
		Cache:        CacheConfig{Backend: "bolt", Path: "ringside.db"},
		Archive:      ArchiveConfig{Driver: "postgres"},
		Connectivity: ConnectivityConfig{ProbeInterval: 15 * time.Second},
		HTTP:         HTTPConfig{Addr: ":8080"},
		Sources: []SourceConfig{
			{
				Name:       "pwtorch",
				Endpoint:   "https://www.pwtorch.com/site/feed/",
				Tier:       "tier1",
				Format:     "rss",
				Domains:    []string{"news", "critical"},
				Categories: []string{"news", "results", "breaking"},
				Promotions: []string{"WWE", "AEW"},
			},
			{
				Name:       "wrestlinginc",
				Endpoint:   "https://www.wrestlinginc.com/feed/",
				Tier:       "tier2",
				Format:     "rss",
				Domains:    []string{"news"},
				Categories: []string{"news", "rumor"},
				Promotions: []string{"WWE", "AEW", "NJPW"},
			},
			{
				Name:       "cagematch-roster",
				Endpoint:   "https://www.cagematch.net/rss/roster.xml",
				Tier:       "tier1",
				Domains:    []string{"roster"},
				Categories: []string{"contract", "injury"},
			},
			{
				Name:       "shop-feed",
				Endpoint:   "https://shop.example.com/feed.json",
				Tier:       "tier2",
				Format:     "json",
				Domains:    []string{"merchandise"},
			},
		},
	}
}
