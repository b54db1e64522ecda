package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rohmanhakim/polite-crawler/internal/build"
	"github.com/rohmanhakim/polite-crawler/internal/config"
	"github.com/rohmanhakim/polite-crawler/internal/extractor"
	"github.com/rohmanhakim/polite-crawler/internal/fetcher"
	"github.com/rohmanhakim/polite-crawler/internal/frontier"
	"github.com/rohmanhakim/polite-crawler/internal/metadata"
	"github.com/rohmanhakim/polite-crawler/internal/orchestrator"
	"github.com/rohmanhakim/polite-crawler/internal/politeness"
	"github.com/rohmanhakim/polite-crawler/internal/robots"
	"github.com/rohmanhakim/polite-crawler/internal/robots/cache"
	"github.com/rohmanhakim/polite-crawler/internal/seed"
	"github.com/rohmanhakim/polite-crawler/internal/seenfilter"
	"github.com/rohmanhakim/polite-crawler/internal/storage"
	"github.com/rohmanhakim/polite-crawler/internal/store"
	"github.com/rohmanhakim/polite-crawler/internal/worker"
	"github.com/rohmanhakim/polite-crawler/pkg/retry"
	"github.com/rohmanhakim/polite-crawler/pkg/timeutil"
)

var (
	cfgFile     string
	seedFile    string
	workerCount int
	maxDepth    int
	outputDir   string
	userAgent   string
	storeAddr   string
	resume      bool
)

// rootCmd is the base command; running it with no subcommand starts a
// crawl, matching the teacher's own single-command CLI shape.
var rootCmd = &cobra.Command{
	Use:   "polite-crawler",
	Short: "A polite, fault-tolerant, large-scale web crawler core.",
	Long: `polite-crawler discovers and fetches pages starting from a seed
list, respecting robots.txt and a per-domain crawl delay, and persists
crawl state so a run can stop and resume without losing progress.`,
	RunE: runCrawl,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringVar(&seedFile, "seed-file", "", "path to a newline-delimited seed URL file")
	rootCmd.PersistentFlags().IntVar(&workerCount, "worker-count", 0, "number of concurrent fetch/parse workers")
	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "maximum link depth to enqueue")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "root directory for the extracted text corpus")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP and robots.txt evaluation")
	rootCmd.PersistentFlags().StringVar(&storeAddr, "store-addr", "", "address of the shared Redis-compatible store")
	rootCmd.PersistentFlags().BoolVar(&resume, "resume", false, "resume from persisted frontier state instead of a fresh crawl")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); it only needs to
// happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ResetFlags restores every package-level flag variable to its zero
// value; tests call this between cases so flag state from one test
// doesn't leak into the next.
func ResetFlags() {
	cfgFile = ""
	seedFile = ""
	workerCount = 0
	maxDepth = 0
	outputDir = ""
	userAgent = ""
	storeAddr = ""
	resume = false
}

// buildConfig layers CLI flags on top of WithConfigFile/WithDefault,
// mirroring the teacher's own "config file wins outright, otherwise
// defaults overridden by flags" precedence.
func buildConfig() (config.Config, error) {
	if cfgFile != "" {
		return config.WithConfigFile(cfgFile)
	}

	if seedFile == "" {
		return config.Config{}, fmt.Errorf("%w: --seed-file is required when no --config-file is given", config.ErrInvalidConfig)
	}

	builder := config.WithDefault(seedFile)
	if workerCount > 0 {
		builder = builder.WithWorkerCount(workerCount)
	}
	if maxDepth > 0 {
		builder = builder.WithMaxDepth(maxDepth)
	}
	if outputDir != "" {
		builder = builder.WithOutputDir(outputDir)
	}
	if userAgent != "" {
		builder = builder.WithUserAgent(userAgent)
	}
	if storeAddr != "" {
		builder = builder.WithStoreAddr(storeAddr)
	}
	if resume {
		builder = builder.WithResume(true)
	}
	return builder.Build()
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	seeds, err := seed.ReadFile(cfg.SeedFile())
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	sink := metadata.NewRecorderWithLogger(fmt.Sprintf("crawl-%d", time.Now().Unix()), logger)

	rawStore := store.NewRedisStore(cfg.StoreAddr(), 0)
	defer rawStore.Close()
	s := store.WithOpTimeout(rawStore, cfg.StoreOpTimeout())

	filter := seenfilter.New(s, cfg.SeenFilterCapacity(), cfg.SeenFilterFPR())
	gate := politeness.NewGate(s, politeness.WithMinCrawlDelay(cfg.MinCrawlDelay()))

	robot := robots.NewCachedRobot(sink)
	robot.InitWithTimeout(cfg.UserAgent(), cache.NewStoreCache(context.Background(), s), cfg.RobotsFetchTimeout())
	robot.SetTTL(cfg.RobotsDefaultTTL(), cfg.RobotsErrorTTL())

	f := frontier.New(s, filter, gate, robot, sink, int64(cfg.WorkerCount()))

	for domain := range cfg.ExcludeDomains() {
		if err := gate.SetExcluded(context.Background(), domain, true); err != nil {
			return fmt.Errorf("excluding domain %s: %w", domain, err)
		}
	}

	extractParam := extractor.ExtractParam{
		BodySpecificityBias:  cfg.BodySpecificityBias(),
		LinkDensityThreshold: cfg.LinkDensityThreshold(),
		ScoreMultiplier: extractor.ContentScoreMultiplier{
			NonWhitespaceDivisor: cfg.ScoreMultiplierNonWhitespaceDivisor(),
			Paragraphs:           cfg.ScoreMultiplierParagraphs(),
			Headings:             cfg.ScoreMultiplierHeadings(),
			CodeBlocks:           cfg.ScoreMultiplierCodeBlocks(),
			ListItems:            cfg.ScoreMultiplierListItems(),
		},
		Threshold: extractor.MeaningfulThreshold{
			MinNonWhitespace:    cfg.ThresholdMinNonWhitespace(),
			MinHeadings:         cfg.ThresholdMinHeadings(),
			MinParagraphsOrCode: cfg.ThresholdMinParagraphsOrCode(),
			MaxLinkDensity:      cfg.ThresholdMaxLinkDensity(),
		},
	}

	corpusSink := storage.NewLocalCorpusSink(sink)
	visitRecorder := storage.NewVisitRecorder(s, sink)

	retryParam := retry.NewRetryParam(0, 0, time.Now().UnixNano(), 3,
		timeutil.NewBackoffParam(200*time.Millisecond, 2.0, 10*time.Second))

	newWorker := func(shardID int64) *worker.Worker {
		htmlFetcher := fetcher.NewHtmlFetcher(sink)
		htmlFetcher.Init(&http.Client{Timeout: cfg.HTTPTimeout()})
		domExtractor := extractor.NewDomExtractor(sink, extractParam)
		return worker.New(
			shardID,
			f,
			&htmlFetcher,
			&domExtractor,
			&corpusSink,
			visitRecorder,
			sink,
			timeutil.NewRealSleeper(),
			cfg.UserAgent(),
			cfg.OutputDir(),
			cfg.MaxDepth(),
			retryParam,
		)
	}

	o := orchestrator.New(f, sink, cfg.WorkerCount(), cfg.Resume(), seeds, cfg.WorkerCount(), newWorker)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("polite-crawler %s starting: %d workers, %d seeds, resume=%t\n",
		build.FullVersion(), cfg.WorkerCount(), len(seeds), cfg.Resume())

	return o.Run(ctx)
}
