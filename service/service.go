// Package service keeps a registry of named curves, rebuilds them when their
// quotes move and publishes each finished curve atomically.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/ycurve/bootstrap"
	"github.com/meenmo/ycurve/curve"
	"github.com/meenmo/ycurve/logger"
	"github.com/meenmo/ycurve/marketdata"
	"github.com/meenmo/ycurve/storage"
	"github.com/meenmo/ycurve/utils"
)

// ErrUnknownCurve is returned for a curve name that was never defined.
var ErrUnknownCurve = errors.New("unknown curve")

// Snapshot is one published build. Its curve is frozen and safe to share.
type Snapshot struct {
	ID          uuid.UUID
	Name        string
	Curve       *curve.Curve
	Report      bootstrap.Report
	BuiltAt     time.Time
	Fingerprint string
}

// Store persists published snapshots and hands back the latest one per curve.
type Store interface {
	SaveCurve(ctx context.Context, b storage.CurveBuild) error
	LatestCurve(ctx context.Context, name string) (*storage.CurveBuild, error)
}

// Options configures a Service.
type Options struct {
	Engine bootstrap.Config

	// Parallel bounds concurrent builds in BuildAll.
	Parallel int

	// CacheMaxCost is the number of builds kept for reuse; zero disables the cache.
	CacheMaxCost int64
	CacheTTL     time.Duration

	// Store is optional.
	Store Store

	// AutoRebuild keeps one watch per curve that rebuilds it after any of its
	// quotes changes. Define restarts the watch on the new quotes.
	AutoRebuild bool
}

type entry struct {
	// mu makes the entry single-writer: one build or definition swap at a time.
	mu     sync.Mutex
	def    marketdata.Definition
	market *marketdata.Market

	// stop cancels the entry's watch, if any.
	stop context.CancelFunc

	published atomic.Pointer[Snapshot]
	lastErr   atomic.Pointer[error]
}

// Service owns the curves and their rebuilds.
type Service struct {
	opts  Options
	cache *buildCache
	log   zerolog.Logger

	mu     sync.RWMutex
	curves map[string]*entry

	// ctx bounds every watch; Close cancels it.
	ctx     context.Context
	cancel  context.CancelFunc
	watches sync.WaitGroup
}

// New validates the engine configuration and prepares an empty registry.
func New(opts Options) (*Service, error) {
	if err := opts.Engine.Validate(); err != nil {
		return nil, err
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 4
	}
	s := &Service{
		opts:   opts,
		log:    logger.Component("service"),
		curves: make(map[string]*entry),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if opts.CacheMaxCost > 0 {
		c, err := newBuildCache(opts.CacheMaxCost, opts.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("build cache: %w", err)
		}
		s.cache = c
	}
	return s, nil
}

// Close stops the watches and releases the build cache.
func (s *Service) Close() {
	s.cancel()
	s.watches.Wait()
	if s.cache != nil {
		s.cache.close()
	}
}

// Define registers or replaces a curve. A replaced curve keeps serving its
// last snapshot until the next build.
func (s *Service) Define(def marketdata.Definition) error {
	m, err := def.Build()
	if err != nil {
		return err
	}

	s.mu.Lock()
	e, ok := s.curves[def.Name]
	if !ok {
		e = &entry{}
		s.curves[def.Name] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	e.def = def
	e.market = m
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	if s.opts.AutoRebuild {
		e.stop = s.startWatch(def.Name, m)
	}
	e.mu.Unlock()

	s.log.Info().Str("curve", def.Name).Int("helpers", len(m.Helpers)).Bool("replaced", ok).Msg("curve defined")
	return nil
}

// Names lists the defined curves in sorted order.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.curves))
	for n := range s.curves {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Service) entry(name string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.curves[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurve, name)
	}
	return e, nil
}

// Definition returns the definition a curve was registered with.
func (s *Service) Definition(name string) (marketdata.Definition, error) {
	e, err := s.entry(name)
	if err != nil {
		return marketdata.Definition{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.def, nil
}

// Curve returns the last published snapshot without blocking on builds.
func (s *Service) Curve(name string) (*Snapshot, error) {
	e, err := s.entry(name)
	if err != nil {
		return nil, err
	}
	snap := e.published.Load()
	if snap == nil {
		if p := e.lastErr.Load(); p != nil {
			return nil, *p
		}
		return nil, fmt.Errorf("curve %s has not been built", name)
	}
	return snap, nil
}

// LastError is the failure of the most recent build, or nil after a success.
func (s *Service) LastError(name string) error {
	e, err := s.entry(name)
	if err != nil {
		return err
	}
	if p := e.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Quotes returns the current quote values of a curve.
func (s *Service) Quotes(name string) (map[string]float64, error) {
	e, err := s.entry(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	m := e.market
	e.mu.Unlock()
	return m.Quotes(), nil
}

// UpdateQuote sets one instrument quote in wire units. It waits for a running
// build of the curve, so a build always sees one consistent set of quotes.
// The curve itself is rebuilt by Build or by the curve's watch.
func (s *Service) UpdateQuote(name, helper string, v decimal.Decimal) (bool, error) {
	e, err := s.entry(name)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.market.Update(helper, v)
}

// UpdateQuotes applies a batch of quotes atomically: if any update is invalid
// none is applied. It returns the instruments whose value changed.
func (s *Service) UpdateQuotes(name string, updates []marketdata.QuoteUpdate) ([]string, error) {
	e, err := s.entry(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.market.UpdateAll(updates)
}

// Build bootstraps one curve from its current quotes and publishes it.
// On failure the previous snapshot stays published.
func (s *Service) Build(ctx context.Context, name string) (*Snapshot, error) {
	e, err := s.entry(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.market
	fp := fingerprint(e.def.Conventions, m)
	key := name + "|" + fp
	if s.cache != nil {
		if snap, ok := s.cache.get(key); ok {
			e.published.Store(snap)
			e.lastErr.Store(nil)
			s.log.Debug().Str("curve", name).Str("build_id", snap.ID.String()).Msg("reused cached build")
			return snap, nil
		}
	}

	b := bootstrap.New(m.Reference, m.Helpers, s.opts.Engine)
	c, err := b.BuildContext(ctx)
	if err != nil {
		err = fmt.Errorf("curve %s: %w", name, err)
		// A cancelled build says nothing about the curve.
		if !errors.Is(err, context.Canceled) {
			e.lastErr.Store(&err)
		}
		s.log.Error().Err(err).Str("curve", name).Msg("build failed")
		return nil, err
	}

	snap := &Snapshot{
		ID:          uuid.New(),
		Name:        name,
		Curve:       c,
		Report:      b.Report(),
		BuiltAt:     time.Now().UTC(),
		Fingerprint: fp,
	}
	if s.opts.Store != nil {
		if err := s.opts.Store.SaveCurve(ctx, toBuild(snap, s.opts.Engine)); err != nil {
			err = fmt.Errorf("curve %s: persist: %w", name, err)
			e.lastErr.Store(&err)
			s.log.Error().Err(err).Str("curve", name).Msg("persist failed")
			return nil, err
		}
	}
	e.published.Store(snap)
	e.lastErr.Store(nil)
	if s.cache != nil {
		s.cache.set(key, snap)
	}

	s.log.Info().
		Str("curve", name).
		Str("build_id", snap.ID.String()).
		Int("nodes", snap.Report.Nodes).
		Int("passes", snap.Report.Passes).
		Dur("elapsed", snap.Report.Duration).
		Msg("curve published")
	return snap, nil
}

// BuildAll builds every defined curve concurrently, at most Parallel at a time.
// Every curve is attempted; the returned error joins all failures.
func (s *Service) BuildAll(ctx context.Context) error {
	names := s.Names()
	errs := make([]error, len(names))

	var g errgroup.Group
	g.SetLimit(s.opts.Parallel)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			_, errs[i] = s.Build(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// startWatch subscribes to every quote of m before returning, so no update
// made after Define is missed. The returned func stops the watch.
func (s *Service) startWatch(name string, m *marketdata.Market) context.CancelFunc {
	ctx, cancel := context.WithCancel(s.ctx)
	dirty := make(chan struct{}, 1)
	for _, h := range m.Helpers {
		q, ok := m.Quote(h.Name())
		if !ok {
			continue
		}
		sub, stop := q.Subscribe()
		s.watches.Add(1)
		go func() {
			defer s.watches.Done()
			defer stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-sub:
					select {
					case dirty <- struct{}{}:
					default:
					}
				}
			}
		}()
	}

	s.watches.Add(1)
	go func() {
		defer s.watches.Done()
		s.watch(ctx, name, dirty)
	}()
	return cancel
}

// watch rebuilds a curve on every signal from dirty until ctx is done. Bursts
// of quote updates collapse into one rebuild.
func (s *Service) watch(ctx context.Context, name string, dirty <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-dirty:
			if _, err := s.Build(ctx, name); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Str("curve", name).Msg("rebuild after quote change failed")
			}
		}
	}
}

// Restore publishes the last stored build of every curve that has no snapshot
// yet, provided it was built for the curve's current reference date. It
// returns the restored curve names.
func (s *Service) Restore(ctx context.Context) ([]string, error) {
	if s.opts.Store == nil {
		return nil, nil
	}
	var restored []string
	var errs []error
	for _, name := range s.Names() {
		e, err := s.entry(name)
		if err != nil {
			continue
		}
		e.mu.Lock()
		ok, err := s.restore(ctx, name, e)
		e.mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("curve %s: restore: %w", name, err))
			continue
		}
		if ok {
			restored = append(restored, name)
		}
	}
	return restored, errors.Join(errs...)
}

func (s *Service) restore(ctx context.Context, name string, e *entry) (bool, error) {
	if e.published.Load() != nil {
		return false, nil
	}
	b, err := s.opts.Store.LatestCurve(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !b.ReferenceDate.Equal(e.market.Reference) {
		return false, nil
	}
	c, err := fromBuild(b, s.opts.Engine)
	if err != nil {
		return false, err
	}
	snap := &Snapshot{
		ID:      b.ID,
		Name:    name,
		Curve:   c,
		Report:  bootstrap.Report{Passes: b.Passes, Nodes: len(b.Nodes)},
		BuiltAt: b.BuiltAt,
	}
	e.published.Store(snap)
	s.log.Info().Str("curve", name).Str("build_id", b.ID.String()).Msg("restored stored build")
	return true, nil
}

// fingerprint identifies the market state a build depends on.
func fingerprint(conventions string, m *marketdata.Market) string {
	quotes := m.Quotes()
	names := make([]string, 0, len(quotes))
	for n := range quotes {
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(strings.ToUpper(conventions))
	sb.WriteByte('/')
	sb.WriteString(string(m.Calendar))
	sb.WriteByte('@')
	sb.WriteString(m.Reference.Format(utils.DateLayout))
	for _, n := range names {
		sb.WriteByte(';')
		sb.WriteString(n)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatUint(math.Float64bits(quotes[n]), 16))
	}
	return sb.String()
}

func toBuild(s *Snapshot, cfg bootstrap.Config) storage.CurveBuild {
	return storage.CurveBuild{
		ID:            s.ID,
		Name:          s.Name,
		ReferenceDate: s.Curve.ReferenceDate(),
		Trait:         cfg.Curve.Trait.String(),
		Interpolation: cfg.Curve.Interpolation.String(),
		DayCount:      string(cfg.Curve.DayCount),
		Passes:        s.Report.Passes,
		BuiltAt:       s.BuiltAt,
		Nodes:         s.Curve.Nodes(),
	}
}

// fromBuild rebuilds a frozen curve from stored nodes.
func fromBuild(b *storage.CurveBuild, cfg bootstrap.Config) (*curve.Curve, error) {
	trait, err := curve.ParseTrait(b.Trait)
	if err != nil {
		return nil, err
	}
	interp, err := curve.ParseInterpolation(b.Interpolation)
	if err != nil {
		return nil, err
	}
	dc, err := utils.ParseDayCount(b.DayCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", curve.ErrInvalidInput, err)
	}
	c, err := curve.New(b.ReferenceDate, curve.Options{
		DayCount:      dc,
		Trait:         trait,
		Interpolation: interp,
		Domain:        cfg.Curve.Domain,
	})
	if err != nil {
		return nil, err
	}
	for _, n := range b.Nodes {
		if _, err := c.AppendNode(n.Date, n.Value); err != nil {
			return nil, err
		}
	}
	if err := c.Freeze(cfg.Extrapolate); err != nil {
		return nil, err
	}
	return c, nil
}
