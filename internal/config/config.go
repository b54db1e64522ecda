package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the crawl's single source of runtime options. It is built
// through the With* builder chain and frozen by Build(), mirroring the
// teacher's own Config shape: an unexported-field struct with a
// WithDefault/With*/Build lifecycle rather than a public struct
// literal, so validation happens exactly once, at Build time.
type Config struct {
	//===============
	// Crawl scope
	//===============
	seedFile       string
	excludeDomains map[string]struct{}
	resume         bool
	frontierType   string

	//===============
	// Concurrency / politeness
	//===============
	workerCount          int
	minCrawlDelay        time.Duration
	httpTimeout          time.Duration
	robotsFetchTimeout   time.Duration
	robotsDefaultTTL     time.Duration
	robotsErrorTTL       time.Duration
	maxDepth             int
	maxURLLength         int
	storeOpTimeout       time.Duration
	seenFilterCapacity   int64
	seenFilterFPR        float64

	//===============
	// Fetch
	//===============
	userAgent string

	//===============
	// Store
	//===============
	storeAddr string

	//===============
	// Output
	//===============
	outputDir string

	//===============
	// Extraction
	//===============
	bodySpecificityBias                 float64
	linkDensityThreshold                float64
	scoreMultiplierNonWhitespaceDivisor float64
	scoreMultiplierParagraphs           float64
	scoreMultiplierHeadings             float64
	scoreMultiplierCodeBlocks           float64
	scoreMultiplierListItems            float64
	thresholdMinNonWhitespace           int
	thresholdMinHeadings                int
	thresholdMinParagraphsOrCode        int
	thresholdMaxLinkDensity             float64
}

type configDTO struct {
	SeedFile             string   `json:"seedFile,omitempty"`
	ExcludeDomains       []string `json:"excludeDomains,omitempty"`
	Resume               bool     `json:"resume,omitempty"`
	FrontierType         string   `json:"frontierType,omitempty"`
	WorkerCount          int      `json:"workerCount,omitempty"`
	MinCrawlDelaySeconds int      `json:"minCrawlDelaySeconds,omitempty"`
	HTTPTimeoutSeconds   int      `json:"httpTimeoutSeconds,omitempty"`
	RobotsFetchTimeoutSeconds int `json:"robotsFetchTimeoutSeconds,omitempty"`
	RobotsDefaultTTLSeconds   int `json:"robotsDefaultTtlSeconds,omitempty"`
	RobotsErrorTTLSeconds     int `json:"robotsErrorTtlSeconds,omitempty"`
	MaxDepth             int      `json:"maxDepth,omitempty"`
	MaxURLLength         int      `json:"maxUrlLength,omitempty"`
	StoreOpTimeoutSeconds int     `json:"storeOpTimeoutSeconds,omitempty"`
	SeenFilterCapacity   int64    `json:"seenFilterCapacity,omitempty"`
	SeenFilterFPR        float64  `json:"seenFilterFpr,omitempty"`
	UserAgent            string   `json:"userAgent,omitempty"`
	StoreAddr            string   `json:"storeAddr,omitempty"`
	OutputDir            string   `json:"outputDir,omitempty"`

	BodySpecificityBias                 float64 `json:"bodySpecificityBias,omitempty"`
	LinkDensityThreshold                float64 `json:"linkDensityThreshold,omitempty"`
	ScoreMultiplierNonWhitespaceDivisor float64 `json:"scoreMultiplierNonWhitespaceDivisor,omitempty"`
	ScoreMultiplierParagraphs           float64 `json:"scoreMultiplierParagraphs,omitempty"`
	ScoreMultiplierHeadings             float64 `json:"scoreMultiplierHeadings,omitempty"`
	ScoreMultiplierCodeBlocks           float64 `json:"scoreMultiplierCodeBlocks,omitempty"`
	ScoreMultiplierListItems            float64 `json:"scoreMultiplierListItems,omitempty"`
	ThresholdMinNonWhitespace           int     `json:"thresholdMinNonWhitespace,omitempty"`
	ThresholdMinHeadings                int     `json:"thresholdMinHeadings,omitempty"`
	ThresholdMinParagraphsOrCode        int     `json:"thresholdMinParagraphsOrCode,omitempty"`
	ThresholdMaxLinkDensity             float64 `json:"thresholdMaxLinkDensity,omitempty"`
}

// WithDefault seeds a Config with every §6.5 default the core
// specifies explicitly; options the spec leaves to the operator
// (worker_count, user_agent, http_timeout_seconds, max_depth,
// exclude_domains) get reasonable non-zero placeholders so a Config
// built with no further overrides is still usable against a small
// local crawl.
func WithDefault(seedFile string) *Config {
	return &Config{
		seedFile:       seedFile,
		excludeDomains: map[string]struct{}{},
		resume:         false,
		frontierType:   "store",

		workerCount:        4,
		minCrawlDelay:      70 * time.Second,
		httpTimeout:        10 * time.Second,
		robotsFetchTimeout: 10 * time.Second,
		robotsDefaultTTL:   86400 * time.Second,
		robotsErrorTTL:     3600 * time.Second,
		maxDepth:           3,
		maxURLLength:       2000,
		storeOpTimeout:     5 * time.Second,
		seenFilterCapacity: 160_000_000,
		seenFilterFPR:      0.001,

		userAgent: "polite-crawler/1.0",
		storeAddr: "localhost:6379",
		outputDir: "output",

		bodySpecificityBias:                 0.75,
		linkDensityThreshold:                0.80,
		scoreMultiplierNonWhitespaceDivisor: 50.0,
		scoreMultiplierParagraphs:           5.0,
		scoreMultiplierHeadings:             10.0,
		scoreMultiplierCodeBlocks:           15.0,
		scoreMultiplierListItems:            2.0,
		thresholdMinNonWhitespace:           50,
		thresholdMinHeadings:                0,
		thresholdMinParagraphsOrCode:        1,
		thresholdMaxLinkDensity:             0.8,
	}
}

func (c *Config) WithSeedFile(path string) *Config {
	c.seedFile = path
	return c
}

func (c *Config) WithExcludeDomains(domains []string) *Config {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[d] = struct{}{}
	}
	c.excludeDomains = set
	return c
}

func (c *Config) WithResume(resume bool) *Config {
	c.resume = resume
	return c
}

func (c *Config) WithFrontierType(frontierType string) *Config {
	c.frontierType = frontierType
	return c
}

func (c *Config) WithWorkerCount(n int) *Config {
	c.workerCount = n
	return c
}

func (c *Config) WithMinCrawlDelay(d time.Duration) *Config {
	c.minCrawlDelay = d
	return c
}

func (c *Config) WithHTTPTimeout(d time.Duration) *Config {
	c.httpTimeout = d
	return c
}

func (c *Config) WithRobotsFetchTimeout(d time.Duration) *Config {
	c.robotsFetchTimeout = d
	return c
}

func (c *Config) WithRobotsDefaultTTL(d time.Duration) *Config {
	c.robotsDefaultTTL = d
	return c
}

func (c *Config) WithRobotsErrorTTL(d time.Duration) *Config {
	c.robotsErrorTTL = d
	return c
}

func (c *Config) WithMaxDepth(depth int) *Config {
	c.maxDepth = depth
	return c
}

func (c *Config) WithMaxURLLength(n int) *Config {
	c.maxURLLength = n
	return c
}

func (c *Config) WithStoreOpTimeout(d time.Duration) *Config {
	c.storeOpTimeout = d
	return c
}

func (c *Config) WithSeenFilterCapacity(n int64) *Config {
	c.seenFilterCapacity = n
	return c
}

func (c *Config) WithSeenFilterFPR(fpr float64) *Config {
	c.seenFilterFPR = fpr
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithStoreAddr(addr string) *Config {
	c.storeAddr = addr
	return c
}

func (c *Config) WithOutputDir(dir string) *Config {
	c.outputDir = dir
	return c
}

func (c *Config) WithBodySpecificityBias(bias float64) *Config {
	c.bodySpecificityBias = bias
	return c
}

func (c *Config) WithLinkDensityThreshold(threshold float64) *Config {
	c.linkDensityThreshold = threshold
	return c
}

func (c *Config) WithScoreMultiplierNonWhitespaceDivisor(divisor float64) *Config {
	c.scoreMultiplierNonWhitespaceDivisor = divisor
	return c
}

func (c *Config) WithScoreMultiplierParagraphs(multiplier float64) *Config {
	c.scoreMultiplierParagraphs = multiplier
	return c
}

func (c *Config) WithScoreMultiplierHeadings(multiplier float64) *Config {
	c.scoreMultiplierHeadings = multiplier
	return c
}

func (c *Config) WithScoreMultiplierCodeBlocks(multiplier float64) *Config {
	c.scoreMultiplierCodeBlocks = multiplier
	return c
}

func (c *Config) WithScoreMultiplierListItems(multiplier float64) *Config {
	c.scoreMultiplierListItems = multiplier
	return c
}

func (c *Config) WithThresholdMinNonWhitespace(min int) *Config {
	c.thresholdMinNonWhitespace = min
	return c
}

func (c *Config) WithThresholdMinHeadings(min int) *Config {
	c.thresholdMinHeadings = min
	return c
}

func (c *Config) WithThresholdMinParagraphsOrCode(min int) *Config {
	c.thresholdMinParagraphsOrCode = min
	return c
}

func (c *Config) WithThresholdMaxLinkDensity(max float64) *Config {
	c.thresholdMaxLinkDensity = max
	return c
}

func (c *Config) Build() (Config, error) {
	if c.seedFile == "" {
		return Config{}, fmt.Errorf("%w: seedFile cannot be empty", ErrInvalidConfig)
	}
	if c.workerCount < 1 {
		return Config{}, fmt.Errorf("%w: workerCount must be >= 1", ErrInvalidConfig)
	}
	if c.maxDepth < 0 {
		return Config{}, fmt.Errorf("%w: maxDepth must be >= 0", ErrInvalidConfig)
	}
	return *c, nil
}

func (c Config) SeedFile() string { return c.seedFile }

func (c Config) ExcludeDomains() map[string]struct{} {
	domains := make(map[string]struct{}, len(c.excludeDomains))
	for k := range c.excludeDomains {
		domains[k] = struct{}{}
	}
	return domains
}

func (c Config) Resume() bool             { return c.resume }
func (c Config) FrontierType() string     { return c.frontierType }
func (c Config) WorkerCount() int         { return c.workerCount }
func (c Config) MinCrawlDelay() time.Duration   { return c.minCrawlDelay }
func (c Config) HTTPTimeout() time.Duration     { return c.httpTimeout }
func (c Config) RobotsFetchTimeout() time.Duration { return c.robotsFetchTimeout }
func (c Config) RobotsDefaultTTL() time.Duration   { return c.robotsDefaultTTL }
func (c Config) RobotsErrorTTL() time.Duration     { return c.robotsErrorTTL }
func (c Config) MaxDepth() int             { return c.maxDepth }
func (c Config) MaxURLLength() int         { return c.maxURLLength }
func (c Config) StoreOpTimeout() time.Duration { return c.storeOpTimeout }
func (c Config) SeenFilterCapacity() int64 { return c.seenFilterCapacity }
func (c Config) SeenFilterFPR() float64    { return c.seenFilterFPR }
func (c Config) UserAgent() string         { return c.userAgent }
func (c Config) StoreAddr() string         { return c.storeAddr }
func (c Config) OutputDir() string         { return c.outputDir }

func (c Config) BodySpecificityBias() float64  { return c.bodySpecificityBias }
func (c Config) LinkDensityThreshold() float64 { return c.linkDensityThreshold }
func (c Config) ScoreMultiplierNonWhitespaceDivisor() float64 { return c.scoreMultiplierNonWhitespaceDivisor }
func (c Config) ScoreMultiplierParagraphs() float64           { return c.scoreMultiplierParagraphs }
func (c Config) ScoreMultiplierHeadings() float64             { return c.scoreMultiplierHeadings }
func (c Config) ScoreMultiplierCodeBlocks() float64           { return c.scoreMultiplierCodeBlocks }
func (c Config) ScoreMultiplierListItems() float64            { return c.scoreMultiplierListItems }
func (c Config) ThresholdMinNonWhitespace() int                { return c.thresholdMinNonWhitespace }
func (c Config) ThresholdMinHeadings() int                     { return c.thresholdMinHeadings }
func (c Config) ThresholdMinParagraphsOrCode() int              { return c.thresholdMinParagraphsOrCode }
func (c Config) ThresholdMaxLinkDensity() float64               { return c.thresholdMaxLinkDensity }

// WithConfigFile loads a JSON config document and layers it on top of
// WithDefault's values: zero-valued DTO fields leave the default in
// place, matching the teacher's own "only override if non-zero" merge
// rule in its config file loader.
func WithConfigFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	var dto configDTO
	if err := json.Unmarshal(content, &dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	return newConfigFromDTO(dto)
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	seedFile := dto.SeedFile
	builder := WithDefault(seedFile)

	if len(dto.ExcludeDomains) > 0 {
		builder.WithExcludeDomains(dto.ExcludeDomains)
	}
	builder.WithResume(dto.Resume)
	if dto.FrontierType != "" {
		builder.WithFrontierType(dto.FrontierType)
	}
	if dto.WorkerCount != 0 {
		builder.WithWorkerCount(dto.WorkerCount)
	}
	if dto.MinCrawlDelaySeconds != 0 {
		builder.WithMinCrawlDelay(time.Duration(dto.MinCrawlDelaySeconds) * time.Second)
	}
	if dto.HTTPTimeoutSeconds != 0 {
		builder.WithHTTPTimeout(time.Duration(dto.HTTPTimeoutSeconds) * time.Second)
	}
	if dto.RobotsFetchTimeoutSeconds != 0 {
		builder.WithRobotsFetchTimeout(time.Duration(dto.RobotsFetchTimeoutSeconds) * time.Second)
	}
	if dto.RobotsDefaultTTLSeconds != 0 {
		builder.WithRobotsDefaultTTL(time.Duration(dto.RobotsDefaultTTLSeconds) * time.Second)
	}
	if dto.RobotsErrorTTLSeconds != 0 {
		builder.WithRobotsErrorTTL(time.Duration(dto.RobotsErrorTTLSeconds) * time.Second)
	}
	if dto.MaxDepth != 0 {
		builder.WithMaxDepth(dto.MaxDepth)
	}
	if dto.MaxURLLength != 0 {
		builder.WithMaxURLLength(dto.MaxURLLength)
	}
	if dto.StoreOpTimeoutSeconds != 0 {
		builder.WithStoreOpTimeout(time.Duration(dto.StoreOpTimeoutSeconds) * time.Second)
	}
	if dto.SeenFilterCapacity != 0 {
		builder.WithSeenFilterCapacity(dto.SeenFilterCapacity)
	}
	if dto.SeenFilterFPR != 0 {
		builder.WithSeenFilterFPR(dto.SeenFilterFPR)
	}
	if dto.UserAgent != "" {
		builder.WithUserAgent(dto.UserAgent)
	}
	if dto.StoreAddr != "" {
		builder.WithStoreAddr(dto.StoreAddr)
	}
	if dto.OutputDir != "" {
		builder.WithOutputDir(dto.OutputDir)
	}
	if dto.BodySpecificityBias != 0 {
		builder.WithBodySpecificityBias(dto.BodySpecificityBias)
	}
	if dto.LinkDensityThreshold != 0 {
		builder.WithLinkDensityThreshold(dto.LinkDensityThreshold)
	}
	if dto.ScoreMultiplierNonWhitespaceDivisor != 0 {
		builder.WithScoreMultiplierNonWhitespaceDivisor(dto.ScoreMultiplierNonWhitespaceDivisor)
	}
	if dto.ScoreMultiplierParagraphs != 0 {
		builder.WithScoreMultiplierParagraphs(dto.ScoreMultiplierParagraphs)
	}
	if dto.ScoreMultiplierHeadings != 0 {
		builder.WithScoreMultiplierHeadings(dto.ScoreMultiplierHeadings)
	}
	if dto.ScoreMultiplierCodeBlocks != 0 {
		builder.WithScoreMultiplierCodeBlocks(dto.ScoreMultiplierCodeBlocks)
	}
	if dto.ScoreMultiplierListItems != 0 {
		builder.WithScoreMultiplierListItems(dto.ScoreMultiplierListItems)
	}
	if dto.ThresholdMinNonWhitespace != 0 {
		builder.WithThresholdMinNonWhitespace(dto.ThresholdMinNonWhitespace)
	}
	builder.WithThresholdMinHeadings(dto.ThresholdMinHeadings)
	if dto.ThresholdMinParagraphsOrCode != 0 {
		builder.WithThresholdMinParagraphsOrCode(dto.ThresholdMinParagraphsOrCode)
	}
	if dto.ThresholdMaxLinkDensity != 0 {
		builder.WithThresholdMaxLinkDensity(dto.ThresholdMaxLinkDensity)
	}

	return builder.Build()
}
