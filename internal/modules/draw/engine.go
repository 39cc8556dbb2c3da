// Package draw computes Secret Santa assignments: permutations of a raffle's
// members with no fixed points and no excluded pair in either direction.
package draw

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

const DefaultAttemptBudget = 1000

const (
	PhaseRandomized = "randomized"
	PhaseExact      = "exact"
)

type Result struct {
	// Assignment maps giver -> receiver.
	Assignment map[uuid.UUID]uuid.UUID
	// Phase is the phase that produced the assignment.
	Phase string
	// Attempts is the number of randomized shuffles tried.
	Attempts int
}

type Option func(*Engine)

func WithAttemptBudget(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.budget = n
		}
	}
}

// WithRand seeds every run from r instead of crypto/rand. Intended for
// deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.seeds = r
		}
	}
}

// Engine is safe for concurrent use. Each Run shuffles with its own source.
type Engine struct {
	budget int

	mu    sync.Mutex // guards seeds
	seeds *rand.Rand
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{budget: DefaultAttemptBudget}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runRand returns a fresh ChaCha8 source for one Run.
func (e *Engine) runRand() *rand.Rand {
	var s [32]byte
	if e.seeds == nil {
		_, _ = crand.Read(s[:])
		return rand.New(rand.NewChaCha8(s))
	}
	e.mu.Lock()
	for i := 0; i < len(s); i += 8 {
		binary.LittleEndian.PutUint64(s[i:], e.seeds.Uint64())
	}
	e.mu.Unlock()
	return rand.New(rand.NewChaCha8(s))
}

// Run produces a valid assignment or reports why none exists. It first tries
// uniform shuffles up to the attempt budget, then falls back to an exact
// bipartite matching, so a feasible instance never fails because of bad luck.
func (e *Engine) Run(members []uuid.UUID, exclusions *ExclusionSet) (*Result, error) {
	n := len(members)
	if n < 2 {
		return nil, ErrInsufficientMembers
	}
	seen := make(map[uuid.UUID]struct{}, n)
	for _, m := range members {
		if _, ok := seen[m]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, m)
		}
		seen[m] = struct{}{}
	}
	allowed := allowFunc(exclusions)
	rng := e.runRand()

	receivers := append([]uuid.UUID(nil), members...)
	for attempt := 1; attempt <= e.budget; attempt++ {
		rng.Shuffle(n, func(i, j int) { receivers[i], receivers[j] = receivers[j], receivers[i] })
		if validShuffle(members, receivers, allowed) {
			out := make(map[uuid.UUID]uuid.UUID, n)
			for i, g := range members {
				out[g] = receivers[i]
			}
			return &Result{Assignment: out, Phase: PhaseRandomized, Attempts: attempt}, nil
		}
	}

	out, unmatched := exactMatching(rng, members, allowed)
	if unmatched > 0 {
		return nil, &InfeasibleError{Members: n, Exclusions: exclusions.Len(), Unmatched: unmatched}
	}
	if err := ValidatePermutation(members, exclusions, out); err != nil {
		return nil, err
	}
	return &Result{Assignment: out, Phase: PhaseExact, Attempts: e.budget}, nil
}

func allowFunc(exclusions *ExclusionSet) func(g, r uuid.UUID) bool {
	return func(g, r uuid.UUID) bool {
		if g == r {
			return false
		}
		return exclusions == nil || !exclusions.Contains(g, r)
	}
}

func validShuffle(givers, receivers []uuid.UUID, allowed func(g, r uuid.UUID) bool) bool {
	for i, g := range givers {
		if !allowed(g, receivers[i]) {
			return false
		}
	}
	return true
}

// exactMatching runs Kuhn's augmenting path algorithm over the graph of
// allowed giver -> receiver edges. Giver order and adjacency order are
// shuffled so the result is still randomized among the matchings found.
func exactMatching(rng *rand.Rand, members []uuid.UUID, allowed func(g, r uuid.UUID) bool) (map[uuid.UUID]uuid.UUID, int) {
	n := len(members)
	adj := make([][]int, n)
	for g := 0; g < n; g++ {
		for r := 0; r < n; r++ {
			if allowed(members[g], members[r]) {
				adj[g] = append(adj[g], r)
			}
		}
		rng.Shuffle(len(adj[g]), func(i, j int) { adj[g][i], adj[g][j] = adj[g][j], adj[g][i] })
	}

	matchR := make([]int, n)
	for i := range matchR {
		matchR[i] = -1
	}
	order := rng.Perm(n)
	visited := make([]bool, n)

	var try func(g int) bool
	try = func(g int) bool {
		for _, r := range adj[g] {
			if visited[r] {
				continue
			}
			visited[r] = true
			if matchR[r] == -1 || try(matchR[r]) {
				matchR[r] = g
				return true
			}
		}
		return false
	}

	unmatched := 0
	for _, g := range order {
		clear(visited)
		if !try(g) {
			unmatched++
		}
	}
	if unmatched > 0 {
		return nil, unmatched
	}
	out := make(map[uuid.UUID]uuid.UUID, n)
	for r, g := range matchR {
		out[members[g]] = members[r]
	}
	return out, 0
}

// ValidatePermutation checks that assignment is a bijection over members with
// no fixed point and no excluded pair.
func ValidatePermutation(members []uuid.UUID, exclusions *ExclusionSet, assignment map[uuid.UUID]uuid.UUID) error {
	if len(assignment) != len(members) {
		return fmt.Errorf("%w: %d givers for %d members", ErrInvalidPermutation, len(assignment), len(members))
	}
	inRaffle := make(map[uuid.UUID]struct{}, len(members))
	for _, m := range members {
		inRaffle[m] = struct{}{}
	}
	received := make(map[uuid.UUID]struct{}, len(members))
	allowed := allowFunc(exclusions)
	for _, g := range members {
		r, ok := assignment[g]
		if !ok {
			return fmt.Errorf("%w: giver %s has no receiver", ErrInvalidPermutation, g)
		}
		if _, ok := inRaffle[r]; !ok {
			return fmt.Errorf("%w: receiver %s is not a member", ErrInvalidPermutation, r)
		}
		if _, dup := received[r]; dup {
			return fmt.Errorf("%w: receiver %s assigned twice", ErrInvalidPermutation, r)
		}
		received[r] = struct{}{}
		if !allowed(g, r) {
			return fmt.Errorf("%w: forbidden pair", ErrInvalidPermutation)
		}
	}
	return nil
}
