package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/polite-crawler/internal/frontier"
	"github.com/rohmanhakim/polite-crawler/internal/metadata"
	"github.com/rohmanhakim/polite-crawler/internal/orchestrator"
	"github.com/rohmanhakim/polite-crawler/internal/politeness"
	"github.com/rohmanhakim/polite-crawler/internal/robots"
	"github.com/rohmanhakim/polite-crawler/internal/seenfilter"
	"github.com/rohmanhakim/polite-crawler/internal/store"
)

// healthCmd is the coarse health ping §4.7 describes: it reports the
// aggregate frontier depth without spawning any workers or fetching
// anything.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report aggregate frontier depth without starting a crawl.",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	rawStore := store.NewRedisStore(cfg.StoreAddr(), 0)
	defer rawStore.Close()
	s := store.WithOpTimeout(rawStore, cfg.StoreOpTimeout())

	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}

	filter := seenfilter.New(s, cfg.SeenFilterCapacity(), cfg.SeenFilterFPR())
	gate := politeness.NewGate(s)
	robot := robots.NewCachedRobot(metadata.NoopSink{})
	robot.Init(cfg.UserAgent())

	f := frontier.New(s, filter, gate, robot, nil, int64(cfg.WorkerCount()))
	o := orchestrator.New(f, nil, cfg.WorkerCount(), cfg.Resume(), nil, 1, nil)

	health, err := o.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	fmt.Printf("frontier depth: %d\n", health.FrontierCount)
	return nil
}
