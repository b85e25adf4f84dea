package anamnesis

import (
	"context"
	"sync"
)

// StateKind distinguishes the three State variants (spec §3.1).
type StateKind int

const (
	StateKindTemporal StateKind = iota
	StateKindTimeless
	StateKindConvergence
)

func (k StateKind) String() string {
	switch k {
	case StateKindTemporal:
		return "Temporal"
	case StateKindTimeless:
		return "Timeless"
	case StateKindConvergence:
		return "Convergence"
	default:
		return "unknown"
	}
}

// StateOptions configures a new Temporal state (spec §6.2
// "create_state(ground, {tt,vt,certainty,self})" and §4.3 "branch").
type StateOptions struct {
	TT        *int64
	VT        *int64
	Certainty float64
	Self      *Subject
	Tracks    State
}

// State is the common surface of Temporal, Timeless, and Convergence (spec
// §3.1, §6.2). Operations that don't apply to a variant (e.g. Branch on a
// Timeless state) return a Schema error.
type State interface {
	ID() int
	Kind() StateKind
	Mind() Mind
	Locked() bool
	GroundState() State
	TT() *int64
	VT() *int64
	Certainty() float64
	Self() *Subject

	Lock() error
	AddBelief(tmpl BeliefTemplate) (*Belief, error)
	RemoveBeliefs(ids ...int) error
	Branch(ground State, vt int64) (State, error)

	GetBeliefs() ([]*Belief, error)
	GetBeliefByLabel(label string) (*Belief, bool, error)
	GetBeliefBySubject(s *Subject) (*Belief, bool, error)
	RevTrait(tt *Traittype, subject *Subject) ([]*Belief, error)

	ContentHash() (string, error)

	cacheGet(beliefID int, ttLabel string) (Value, bool, bool)
	cacheSet(beliefID int, ttLabel string, v Value, defined bool)
}

// cacheKey identifies one memoized (belief, traittype) resolution.
type cacheKey struct {
	beliefID int
	tt       string
}

type cacheEntry struct {
	value   Value
	defined bool
}

// traitCache is the per-state memoization cache from spec §4.2 step 5. It
// is only consulted/populated once the owning state is locked: mutation is
// only possible while a state is open, so bypassing the cache while open
// makes "invalidate on mutation" a non-issue rather than something that
// needs active invalidation logic.
type traitCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

func newTraitCache() *traitCache {
	return &traitCache{entries: map[cacheKey]cacheEntry{}}
}

func (c *traitCache) get(beliefID int, tt string) (Value, bool, bool) {
	hits, misses, _ := instruments()
	c.mu.Lock()
	e, ok := c.entries[cacheKey{beliefID, tt}]
	c.mu.Unlock()
	if !ok {
		misses.Add(context.Background(), 1)
		return Value{}, false, false
	}
	hits.Add(context.Background(), 1)
	return e.value, e.defined, true
}

func (c *traitCache) set(beliefID int, tt string, v Value, defined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{beliefID, tt}] = cacheEntry{value: v, defined: defined}
}

func (c *traitCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[cacheKey]cacheEntry{}
}

// revIndex is the lazily-built reverse trait index from spec §4.2
// ("rev_trait ... Implementation uses a reverse index per (state,
// traittype) lazily built at first call").
type revIndex struct {
	mu      sync.Mutex
	byTT    map[string]map[int][]*Belief // traittype label -> sid -> beliefs referencing it
	built   map[string]bool
}

func newRevIndex() *revIndex {
	return &revIndex{byTT: map[string]map[int][]*Belief{}, built: map[string]bool{}}
}

// stateCore holds the fields and behavior shared by all three State
// variants: identity, lock flag, temporal fields, and the cache/reverse
// index. Variant-specific methods (GetBeliefs, AddBelief, Branch, Lock, ...)
// are defined on the concrete *TemporalState/*TimelessState/
// *ConvergenceState types since their behavior genuinely differs per spec
// §4.3/§4.4.
type stateCore struct {
	id        int
	mind      Mind
	locked    bool
	ground    State
	tt        *int64
	vt        *int64
	certainty float64
	self      *Subject

	cache *traitCache
	rev   *revIndex
}

func newStateCore(id int, mind Mind, ground State, opts StateOptions) stateCore {
	return stateCore{
		id:        id,
		mind:      mind,
		ground:    ground,
		tt:        opts.TT,
		vt:        opts.VT,
		certainty: opts.Certainty,
		self:      opts.Self,
		cache:     newTraitCache(),
		rev:       newRevIndex(),
	}
}

func (s *stateCore) ID() int             { return s.id }
func (s *stateCore) Mind() Mind          { return s.mind }
func (s *stateCore) Locked() bool        { return s.locked }
func (s *stateCore) GroundState() State  { return s.ground }
func (s *stateCore) TT() *int64          { return s.tt }
func (s *stateCore) VT() *int64          { return s.vt }
func (s *stateCore) Certainty() float64  { return s.certainty }
func (s *stateCore) Self() *Subject      { return s.self }

func (s *stateCore) cacheGet(beliefID int, ttLabel string) (Value, bool, bool) {
	if !s.locked {
		return Value{}, false, false
	}
	return s.cache.get(beliefID, ttLabel)
}

func (s *stateCore) cacheSet(beliefID int, ttLabel string, v Value, defined bool) {
	if !s.locked {
		return
	}
	s.cache.set(beliefID, ttLabel, v, defined)
}
