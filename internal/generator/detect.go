package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/zappy/internal/a2a"
	"github.com/dusk-indust/zappy/internal/logging"
	"github.com/dusk-indust/zappy/internal/orchestrator"
)

// Mode names the generation service a pipeline runs against.
type Mode string

const (
	ModeRemote  Mode = "a2a"
	ModeOffline Mode = "offline"
)

// DefaultProbeTimeout bounds each agent card request made by Detect.
const DefaultProbeTimeout = 2 * time.Second

// SelectOptions controls Select.
type SelectOptions struct {
	Client       a2a.Client
	Endpoints    map[orchestrator.StageID]string
	Registry     *orchestrator.Registry
	Offline      bool
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// Select chooses the generation service. Offline, or no endpoints at all,
// gives a Template. Otherwise every configured agent is probed and an A2A
// generator is returned when all of them answer.
func Select(ctx context.Context, opts SelectOptions) (orchestrator.Generator, Mode, error) {
	if opts.Registry == nil {
		opts.Registry = orchestrator.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Client == nil {
		opts.Client = a2a.NewHTTPClient()
	}

	if opts.Offline {
		return NewTemplate(opts.Registry), ModeOffline, nil
	}
	if len(opts.Endpoints) == 0 {
		opts.Logger.Warn("no agent endpoints configured, using offline templates")
		return NewTemplate(opts.Registry), ModeOffline, nil
	}

	cards, err := Detect(ctx, opts.Client, opts.Endpoints, opts.ProbeTimeout)
	if err != nil {
		return nil, "", err
	}
	opts.Logger.Info("agents detected", "count", len(cards))

	gen, err := NewA2A(opts.Client, opts.Endpoints, WithRegistry(opts.Registry), WithLogger(opts.Logger))
	if err != nil {
		return nil, "", err
	}
	return gen, ModeRemote, nil
}

// Detect fetches the agent card of every endpoint concurrently. It fails,
// naming every stage, when any agent does not answer within timeout.
func Detect(ctx context.Context, client a2a.Client, endpoints map[orchestrator.StageID]string, timeout time.Duration) (map[orchestrator.StageID]*a2a.AgentCard, error) {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	var (
		mu          sync.Mutex
		cards       = make(map[orchestrator.StageID]*a2a.AgentCard, len(endpoints))
		unreachable []string
	)

	var g errgroup.Group
	for stage, endpoint := range endpoints {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			card, err := client.DiscoverAgent(probeCtx, endpoint)

			mu.Lock()
			defer mu.Unlock()
			if err != nil || card == nil {
				unreachable = append(unreachable, fmt.Sprintf("%s (%s)", stage, endpoint))
				return nil
			}
			cards[stage] = card
			return nil
		})
	}
	_ = g.Wait()

	if len(unreachable) > 0 {
		sort.Strings(unreachable)
		return nil, fmt.Errorf("generator: agents unreachable: %s", strings.Join(unreachable, ", "))
	}
	return cards, nil
}
