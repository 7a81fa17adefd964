// Package app wires the simulation: catalog, registry, scheduler driver,
// metrics sinks and the MQTT bridge.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/calloutsim/config"
	"github.com/kilianp07/calloutsim/core/catalog"
	"github.com/kilianp07/calloutsim/core/clock"
	"github.com/kilianp07/calloutsim/core/dispatch"
	"github.com/kilianp07/calloutsim/core/events"
	"github.com/kilianp07/calloutsim/core/generator"
	coremetrics "github.com/kilianp07/calloutsim/core/metrics"
	coremon "github.com/kilianp07/calloutsim/core/monitoring"
	"github.com/kilianp07/calloutsim/core/scheduler"
	"github.com/kilianp07/calloutsim/core/world"
	"github.com/kilianp07/calloutsim/infra/logger"
	"github.com/kilianp07/calloutsim/infra/metrics"
	"github.com/kilianp07/calloutsim/infra/monitoring"
	"github.com/kilianp07/calloutsim/infra/mqtt"
)

// Option customises a Service.
type Option func(*options)

type options struct {
	catalog   *catalog.Catalog
	responder *ResponderConfig
	now       func() time.Time
}

// WithCatalog uses c instead of the configured catalog file.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithResponder drives units automatically, for runs without an external
// world.
func WithResponder(cfg ResponderConfig) Option {
	return func(o *options) { o.responder = &cfg }
}

// WithNow replaces the wall clock of the game clock.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Service orchestrates the agencies of one simulation.
type Service struct {
	Registry *world.Registry
	Clock    *clock.Clock
	Driver   *scheduler.Driver
	Tally    *Tally

	cfg       *config.Config
	hub       *events.Hub
	sink      coremetrics.MetricsSink
	bridge    *mqtt.Bridge
	responder *Responder
	detach    []func()
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log := logger.New("service")
	if cfg.Sentry.DSN != "" {
		mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		coremon.Init(mon)
	}

	var clockOpts []clock.Option
	if o.now != nil {
		clockOpts = append(clockOpts, clock.WithNow(o.now))
	}
	clk, err := clock.New(cfg.Simulation.RealPerGameHour(), cfg.Simulation.StartHour, clockOpts...)
	if err != nil {
		return nil, err
	}
	hub := events.NewHub(logger.New("events"))
	reg, err := world.NewRegistry(world.Options{
		Config: world.Config{
			Dispatch:  cfg.Dispatch,
			Generator: cfg.Generator,
			Roster:    cfg.Roster,
		},
		Clock: clk,
		Hub:   hub,
		Seed:  cfg.Simulation.Seed,
		Log:   logger.New("world"),
	})
	if err != nil {
		return nil, err
	}

	cat := o.catalog
	if cat == nil {
		if cat, err = loadCatalog(cfg.Catalog.Path); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	if err := cat.Apply(reg); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	s := &Service{
		Registry: reg,
		Clock:    clk,
		Tally:    NewTally(),
		cfg:      cfg,
		hub:      hub,
		sink:     sink,
		log:      log,
	}
	s.detach = append(s.detach, s.Tally.Attach(hub))
	if cfg.Simulation.MutualAid {
		s.detach = append(s.detach, reg.EnableMutualAid())
	}
	s.Driver = scheduler.New(clk, s.agencies, cfg.Simulation.Tick(), logger.New("scheduler"),
		scheduler.WithSkippable(world.ErrAgencyDisabled))
	if o.responder != nil {
		s.responder = NewResponder(reg, *o.responder, logger.New("responder"))
	}
	if cfg.MQTT.Enabled {
		if s.bridge, err = mqtt.NewBridge(cfg.MQTT, reg); err != nil {
			return nil, fmt.Errorf("mqtt bridge: %w", err)
		}
	}
	return s, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func (s *Service) agencies() []scheduler.Agency {
	all := s.Registry.Agencies()
	res := make([]scheduler.Agency, len(all))
	for i, a := range all {
		res[i] = a
	}
	return res
}

// Run enables every agency and blocks until ctx is cancelled. Agencies are
// disabled before Run returns.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	bus := s.hub.Bus()
	metrics.StartEventCollector(gctx, bus, s.sink, logger.New("metrics"))
	if s.bridge != nil {
		sub := bus.SubscribeSize(mqttBuffer)
		g.Go(coremon.Guard("mqtt", func() error {
			defer bus.Unsubscribe(sub)
			return s.bridge.Consume(gctx, sub)
		}))
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		registerCoreCollectors.Do(func() {
			dispatch.MustRegisterMetrics(nil)
			generator.MustRegisterMetrics(nil)
		})
		g.Go(coremon.Guard("prometheus", func() error { return metrics.StartPromServer(gctx, addr, nil) }))
	}

	if err := s.Registry.EnableAll(gctx); err != nil {
		cancel()
		_ = g.Wait()
		_ = s.Registry.DisableAll()
		coremon.CaptureException(err, map[string]string{"component": "world"})
		return err
	}
	s.log.Infof("simulation started: %d agencies, %d zones, game hour %s",
		len(s.Registry.Agencies()), len(s.Registry.Zones()), s.Clock.RealPerGameHour())

	g.Go(coremon.Guard("scheduler", func() error { return s.Driver.Run(gctx) }))
	if s.responder != nil {
		g.Go(coremon.Guard("responder", func() error { return s.responder.Run(gctx, s.cfg.Simulation.Tick()) }))
	}
	err := g.Wait()
	for _, st := range s.Stats() {
		s.log.Infof("agency %s at shutdown: %s, crime %s, %d/%d units idle, %d calls queued, %d waiting",
			st.ID, st.Period, st.CrimeLevel, st.Idle, st.OnDuty, st.Queued, st.Waiting)
	}
	if n := s.hub.Dropped(); n > 0 {
		s.log.Warnf("%d asynchronous event deliveries dropped by slow subscribers", n)
	}
	if derr := s.Registry.DisableAll(); derr != nil {
		s.log.Warnf("disable agencies: %v", derr)
	}
	return err
}

const mqttBuffer = 256

var registerCoreCollectors sync.Once

// Stats summarises every agency.
func (s *Service) Stats() []world.Stats {
	all := s.Registry.Agencies()
	res := make([]world.Stats, len(all))
	for i, a := range all {
		res[i] = a.Stats()
	}
	return res
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	for _, fn := range s.detach {
		fn()
	}
	if s.bridge != nil {
		s.bridge.Close()
	}
	s.hub.Close()
	coremon.Flush(2 * time.Second)
	return coremetrics.Close(s.sink)
}
