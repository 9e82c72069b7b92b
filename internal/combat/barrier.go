package combat

// Barrier absorbs damage before it reaches HP. Implementations hold
// per-session state keyed by combatant.
type Barrier interface {
	// Raise sets target's barrier to points, replacing any previous value.
	Raise(target *Combatant, points int)
	// Absorb soaks up to the remaining barrier from damage and returns what
	// passes through and what was absorbed.
	Absorb(target *Combatant, damage int) (through, absorbed int)
	// Points returns target's remaining barrier.
	Points(target *Combatant) int
	// Clear drops every barrier.
	Clear()
}

// NoBarrier never absorbs anything.
type NoBarrier struct{}

func (NoBarrier) Raise(*Combatant, int)                 {}
func (NoBarrier) Absorb(_ *Combatant, d int) (int, int) { return d, 0 }
func (NoBarrier) Points(*Combatant) int                 { return 0 }
func (NoBarrier) Clear()                                {}

// PointBarrier is a simple pool of absorb points per combatant.
type PointBarrier struct {
	points map[*Combatant]int
}

// NewPointBarrier creates an empty barrier pool.
func NewPointBarrier() *PointBarrier {
	return &PointBarrier{points: make(map[*Combatant]int)}
}

// Raise implements Barrier.
func (b *PointBarrier) Raise(target *Combatant, points int) {
	if points <= 0 {
		delete(b.points, target)
		return
	}
	b.points[target] = points
}

// Absorb implements Barrier.
func (b *PointBarrier) Absorb(target *Combatant, damage int) (int, int) {
	pool := b.points[target]
	if pool <= 0 || damage <= 0 {
		return damage, 0
	}
	absorbed := min(pool, damage)
	b.points[target] = pool - absorbed
	return damage - absorbed, absorbed
}

// Points implements Barrier.
func (b *PointBarrier) Points(target *Combatant) int { return b.points[target] }

// Clear implements Barrier.
func (b *PointBarrier) Clear() { clear(b.points) }
