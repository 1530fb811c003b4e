package sim

import (
	"fmt"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/calvey/bankgrid/components"
	"github.com/calvey/bankgrid/config"
)

// Options holds per-trial identity and reproducibility knobs.
type Options struct {
	UID  int64 // trial identifier, allocated by the batch engine
	Seed int64 // RNG seed for this trial
}

// Model is one independent trial: the grid, the bank, the agent
// population and the run-scoped parameters. Instances share no mutable
// state, so trials can run on separate workers.
type Model struct {
	uid int64
	cfg config.ModelConfig

	world     *ecs.World
	mapper    *ecs.Map2[components.Position, components.Person]
	filter    *ecs.Filter2[components.Position, components.Person]
	posMap    *ecs.Map1[components.Position]
	personMap *ecs.Map1[components.Person]

	grid *Grid
	bank *Bank
	rng  *rand.Rand

	step int

	// Scratch buffers reused across ticks
	order     []ecs.Entity
	neighbors []ecs.Entity
	eligible  []ecs.Entity
}

// New creates a model, placing init_people agents at random cells with
// randomized starting wallets and empty savings and loans.
func New(cfg config.ModelConfig, opts Options) (*Model, error) {
	world := ecs.NewWorld()

	m := &Model{
		uid:       opts.UID,
		cfg:       cfg,
		world:     world,
		mapper:    ecs.NewMap2[components.Position, components.Person](world),
		filter:    ecs.NewFilter2[components.Position, components.Person](world),
		posMap:    ecs.NewMap1[components.Position](world),
		personMap: ecs.NewMap1[components.Person](world),
		grid:      NewGrid(cfg.Width, cfg.Height),
		bank:      NewBank(cfg.ReservePercent),
		rng:       rand.New(rand.NewSource(opts.Seed)),
		order:     make([]ecs.Entity, 0, cfg.InitPeople),
	}

	for i := 0; i < cfg.InitPeople; i++ {
		x := m.rng.Intn(cfg.Width)
		y := m.rng.Intn(cfg.Height)
		pos := components.Position{X: x, Y: y}
		person := components.Person{
			ID:     i,
			Wallet: 1 + m.rng.Intn(initialWalletMax),
		}
		e := m.mapper.NewEntity(&pos, &person)
		if err := m.grid.Place(e, x, y); err != nil {
			return nil, fmt.Errorf("placing agent %d: %w", i, err)
		}
	}

	return m, nil
}

// Step advances the model one tick: every live agent is activated exactly
// once, in a freshly shuffled order. The shuffle is explicit and drawn
// from the model's seeded RNG, never container iteration order, so runs
// reproduce under a fixed seed.
func (m *Model) Step() {
	m.order = m.order[:0]
	query := m.filter.Query()
	for query.Next() {
		m.order = append(m.order, query.Entity())
	}

	m.rng.Shuffle(len(m.order), func(i, j int) {
		m.order[i], m.order[j] = m.order[j], m.order[i]
	})

	for _, e := range m.order {
		m.stepPerson(e)
	}
	m.step++
}

// UID returns the trial identifier.
func (m *Model) UID() int64 { return m.uid }

// StepIndex returns the number of completed steps.
func (m *Model) StepIndex() int { return m.step }

// Cfg returns the run-scoped parameters.
func (m *Model) Cfg() config.ModelConfig { return m.cfg }

// Bank returns the model's bank.
func (m *Model) Bank() *Bank { return m.bank }

// Grid returns the model's grid.
func (m *Model) Grid() *Grid { return m.grid }

// Population returns the number of live agents.
func (m *Model) Population() int {
	n := 0
	query := m.filter.Query()
	for query.Next() {
		n++
	}
	return n
}

// ForEachPerson invokes fn for every agent. The callback may mutate the
// components; no structural world changes happen during iteration.
func (m *Model) ForEachPerson(fn func(pos *components.Position, p *components.Person)) {
	query := m.filter.Query()
	for query.Next() {
		pos, person := query.Get()
		fn(pos, person)
	}
}
