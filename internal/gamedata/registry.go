package gamedata

// Registry holds loaded definitions of one catalog and provides lookup utilities.
type Registry[T any] struct {
	byID map[string]*T
	all  []T
}

// NewRegistry creates a registry from loaded definitions, keyed by id.
// Later duplicates of an id shadow earlier ones.
func NewRegistry[T any](items []T, id func(*T) string) *Registry[T] {
	registry := &Registry[T]{
		byID: make(map[string]*T, len(items)),
		all:  items,
	}
	for i := range items {
		registry.byID[id(&items[i])] = &items[i]
	}
	return registry
}

// GetByID returns the definition with the given ID, or nil if not found.
// A nil registry behaves as an empty one.
func (r *Registry[T]) GetByID(id string) *T {
	if r == nil {
		return nil
	}
	return r.byID[id]
}

// GetMultiple returns definitions for a list of IDs.
// Missing IDs are silently skipped.
func (r *Registry[T]) GetMultiple(ids []string) []*T {
	result := make([]*T, 0, len(ids))
	for _, id := range ids {
		if def := r.GetByID(id); def != nil {
			result = append(result, def)
		}
	}
	return result
}

// All returns all definitions in catalog order.
func (r *Registry[T]) All() []T {
	if r == nil {
		return nil
	}
	return r.all
}

// Count returns the number of definitions in the registry.
func (r *Registry[T]) Count() int {
	if r == nil {
		return 0
	}
	return len(r.all)
}

// Intner is the random source SpawnRandom draws from. *rand.Rand and
// dice.Source both satisfy it.
type Intner interface {
	Intn(n int) int
}

// SpawnRandom selects a random enemy definition using weighted probability.
// Enemies with higher spawnWeight are more likely to be selected.
func SpawnRandom(r *Registry[EnemyDef], rng Intner) *EnemyDef {
	totalWeight := 0
	for _, e := range r.All() {
		totalWeight += e.SpawnWeight
	}
	if totalWeight <= 0 {
		return nil
	}

	// Pick a random value in the total weight range
	roll := rng.Intn(totalWeight)

	// Find which enemy this roll corresponds to
	cumulative := 0
	for i := range r.all {
		cumulative += r.all[i].SpawnWeight
		if roll < cumulative {
			return &r.all[i]
		}
	}

	return &r.all[0]
}
