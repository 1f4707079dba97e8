package world

import (
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"

	"go.uber.org/zap"

	"ninex.world/internal/persistence/snapshot"
	"ninex.world/internal/sim/efe"
	"ninex.world/internal/sim/genes"
	"ninex.world/internal/sim/organism"
)

var ErrTerminated = errors.New("world terminated")

type State int32

const (
	StateUninitialized State = iota
	StatePopulated
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePopulated:
		return "populated"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      Config
	behavior organism.Behavior
	decoder  genes.Decoder
	engine   efe.Engine
	log      *zap.Logger

	genomeSize              int
	neighborhoodSizeInCells int
	neighborhoodAddressSize int

	// grid[x][y]; scans run x outer, y inner.
	grid [][]*organism.Organism

	tick  atomic.Uint64
	state atomic.Int32

	// Optional sinks (may be nil). Implemented in internal/persistence/*.
	tickLogger   TickLogger
	snapshotSink chan<- snapshot.SnapshotV1

	observers     map[string]*observerClient
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	admin         chan adminSnapshotReq
	stop          chan struct{}
	stopOnce      atomicOnce

	metrics atomic.Value
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// TickLogEntry records one iteration: Tick is the iteration that was
// stepped and Digest the state after it.
type TickLogEntry struct {
	Tick   uint64 `json:"tick"`
	Digest string `json:"digest"`
}

type atomicOnce struct{ done atomic.Bool }

func (o *atomicOnce) Do(f func()) {
	if o.done.CompareAndSwap(false, true) {
		f()
	}
}

// New builds a populated world with the behavior named in cfg.
func New(cfg Config, logger *zap.Logger) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b, err := organism.Lookup(cfg.Behavior)
	if err != nil {
		return nil, err
	}
	return NewWithBehavior(cfg, b, logger)
}

// NewWithBehavior builds a populated world driven by b. Organisms are
// created in scan order from a generator seeded with cfg.Seed, genome first
// and then history for each cell.
func NewWithBehavior(cfg Config, b organism.Behavior, logger *zap.Logger) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: nil behavior", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &World{
		cfg:           cfg,
		behavior:      b,
		decoder:       genes.NewDecoder(cfg.GenomeAddressSize),
		engine:        efe.New(cfg.EFELength, cfg.EFESpread),
		log:           logger.With(zap.String("world", cfg.ID)),
		genomeSize:    cfg.GenomeSize(),
		observers:     map[string]*observerClient{},
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerSub:   make(chan ObserverSubscribeRequest, 16),
		observerLeave: make(chan string, 16),
		admin:         make(chan adminSnapshotReq, 4),
		stop:          make(chan struct{}),
	}
	w.neighborhoodSizeInCells = NeighborhoodSizeInCells(cfg.NeighborhoodRadius)
	w.neighborhoodAddressSize = NeighborhoodAddressSize(w.neighborhoodSizeInCells, w.genomeSize)

	rng := rand.New(rand.NewSource(cfg.Seed))
	w.grid = make([][]*organism.Organism, cfg.Width)
	for x := 0; x < cfg.Width; x++ {
		w.grid[x] = make([]*organism.Organism, cfg.Height)
		for y := 0; y < cfg.Height; y++ {
			w.grid[x][y] = organism.New(organism.Position{X: x, Y: y}, w.genomeSize, cfg.BitHistorySize, rng)
		}
	}
	w.state.Store(int32(StatePopulated))
	w.storeMetrics(0)

	w.log.Debug("world populated",
		zap.Int("organisms", cfg.Width*cfg.Height),
		zap.Int("genome_size", w.genomeSize),
		zap.Int("neighborhood_address_size", w.neighborhoodAddressSize))
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Config() Config              { return w.cfg }
func (w *World) CurrentTick() uint64         { return w.tick.Load() }
func (w *World) State() State                { return State(w.state.Load()) }
func (w *World) Decoder() genes.Decoder      { return w.decoder }
func (w *World) Engine() efe.Engine          { return w.engine }
func (w *World) Behavior() organism.Behavior { return w.behavior }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

// Size returns the grid dimensions.
func (w *World) Size() (width, height int) { return w.cfg.Width, w.cfg.Height }

func (w *World) GenomeSize() int              { return w.genomeSize }
func (w *World) NeighborhoodSizeInCells() int { return w.neighborhoodSizeInCells }
func (w *World) NeighborhoodAddressSize() int { return w.neighborhoodAddressSize }

// Organism returns the organism at (x, y), or nil outside the grid or after
// Close.
func (w *World) Organism(x, y int) *organism.Organism {
	if w.grid == nil || x < 0 || y < 0 || x >= w.cfg.Width || y >= w.cfg.Height {
		return nil
	}
	return w.grid[x][y]
}

// Each visits every organism in scan order.
func (w *World) Each(fn func(o *organism.Organism)) {
	for x := range w.grid {
		for y := range w.grid[x] {
			fn(w.grid[x][y])
		}
	}
}

// Stop asks Run to return. It is safe to call from any goroutine.
func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// Close tears the world down. Every organism is released; later steps fail
// with ErrTerminated. Close must not race Run; call it after Run returns.
func (w *World) Close() {
	if State(w.state.Swap(int32(StateTerminated))) == StateTerminated {
		return
	}
	w.Stop()
	w.grid = nil
	for id, c := range w.observers {
		close(c.out)
		delete(w.observers, id)
	}
	w.log.Debug("world terminated", zap.Uint64("tick", w.tick.Load()))
}
