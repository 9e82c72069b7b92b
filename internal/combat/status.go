package combat

import (
	"fmt"
	"slices"

	"github.com/samdwyer/storybattle/internal/dice"
	"github.com/samdwyer/storybattle/internal/gamedata"
)

// StatusEngine owns status application and ticking, stagger accumulation
// and special-charge accumulation. It reads definitions from the catalog and
// never holds per-battle state of its own.
type StatusEngine struct {
	catalog *gamedata.Catalog
	src     dice.Source
}

// NewStatusEngine creates a status engine. src drives confusion rolls.
func NewStatusEngine(catalog *gamedata.Catalog, src dice.Source) *StatusEngine {
	if catalog == nil {
		catalog = gamedata.EmptyCatalog()
	}
	return &StatusEngine{catalog: catalog, src: src}
}

// Catalog returns the catalog the engine reads from.
func (e *StatusEngine) Catalog() *gamedata.Catalog { return e.catalog }

// StatusApplication is a status that a resolution wants applied. The
// resolver never mutates combatants; the caller applies these.
type StatusApplication struct {
	Target *Combatant
	Status string
	Stacks int
}

// ApplyResult describes what Apply did.
type ApplyResult struct {
	Status    string
	Applied   bool // New instance created
	Stacked   bool
	Refreshed bool
	Immune    bool
	Unknown   bool
	Stacks    int
	Duration  int
	Message   string
}

// Apply adds a status to target. Stackable statuses gain stacks up to their
// cap and keep the longer of their remaining and base duration; non-stackable
// ones have their duration reset. A fresh instance is marked JustApplied so
// that its first periodic tick is skipped.
func (e *StatusEngine) Apply(target *Combatant, id string, stacks int) ApplyResult {
	def := e.catalog.Statuses.GetByID(id)
	if def == nil {
		return ApplyResult{Status: id, Unknown: true}
	}
	if e.IsImmune(target, id) {
		return ApplyResult{
			Status:  id,
			Immune:  true,
			Message: fmt.Sprintf("%s is immune to %s!", target.Name, def.Name),
		}
	}
	if stacks < 1 {
		stacks = 1
	}
	if !def.Stackable {
		stacks = 1
	}

	if inst := target.Status(id); inst != nil {
		if def.Stackable {
			inst.Stacks += stacks
			if def.MaxStacks > 0 && inst.Stacks > def.MaxStacks {
				inst.Stacks = def.MaxStacks
			}
			inst.Duration = max(inst.Duration, def.Duration)
			return ApplyResult{
				Status:   id,
				Stacked:  true,
				Stacks:   inst.Stacks,
				Duration: inst.Duration,
				Message:  fmt.Sprintf("%s's %s intensifies (x%d)!", target.Name, def.Name, inst.Stacks),
			}
		}
		inst.Duration = def.Duration
		return ApplyResult{
			Status:    id,
			Refreshed: true,
			Stacks:    inst.Stacks,
			Duration:  inst.Duration,
			Message:   fmt.Sprintf("%s's %s is refreshed.", target.Name, def.Name),
		}
	}

	if def.MaxStacks > 0 && stacks > def.MaxStacks {
		stacks = def.MaxStacks
	}
	target.Statuses = append(target.Statuses, StatusInstance{
		ID:          id,
		Duration:    def.Duration,
		Stacks:      stacks,
		JustApplied: true,
	})
	return ApplyResult{
		Status:   id,
		Applied:  true,
		Stacks:   stacks,
		Duration: def.Duration,
		Message:  fmt.Sprintf("%s is afflicted with %s!", target.Name, def.Name),
	}
}

// ApplyAll applies every pending application and returns the results in order.
func (e *StatusEngine) ApplyAll(apps []StatusApplication) []ApplyResult {
	results := make([]ApplyResult, 0, len(apps))
	for _, a := range apps {
		if a.Target == nil {
			continue
		}
		results = append(results, e.Apply(a.Target, a.Status, a.Stacks))
	}
	return results
}

// Cure removes the listed statuses and returns the ids actually removed.
func (e *StatusEngine) Cure(target *Combatant, ids []string) []string {
	var removed []string
	for _, id := range ids {
		if target.RemoveStatus(id) {
			removed = append(removed, id)
		}
	}
	return removed
}

// TickKind classifies a tick event.
type TickKind string

const (
	TickDamage     TickKind = "damage"
	TickHeal       TickKind = "heal"
	TickMana       TickKind = "mana"
	TickSkip       TickKind = "skip"
	TickSelfHarm   TickKind = "self_harm"
	TickRecovered  TickKind = "recovered"
	TickExpired    TickKind = "expired"
	TickTerrain    TickKind = "terrain"
	TickSuppressed TickKind = "suppressed"
)

// TickEvent is one observable effect of a status tick.
type TickEvent struct {
	Status  string
	Kind    TickKind
	Amount  int
	Message string
}

// TickReport summarises a combatant's status tick.
type TickReport struct {
	CanAct  bool
	Damage  int
	Healing int
	Mana    int
	Expired []string
	Events  []TickEvent
}

// Messages returns the event messages in order.
func (r TickReport) Messages() []string {
	msgs := make([]string, 0, len(r.Events))
	for _, ev := range r.Events {
		if ev.Message != "" {
			msgs = append(msgs, ev.Message)
		}
	}
	return msgs
}

// Tick processes target's statuses at the start of its turn.
//
// Order: terrain heal, then each status in application order. Expired
// instances are removed first. Confusion-like statuses roll for self-harm;
// on a failed roll they are removed and the owner may act. Other statuses
// skip their periodic effect on the turn they were applied. Turn-skipping
// statuses block the action regardless. Each processed status then loses
// one turn of duration.
func (e *StatusEngine) Tick(target *Combatant, terrain *gamedata.TerrainDef) TickReport {
	report := TickReport{CanAct: true}
	add := func(ev TickEvent) { report.Events = append(report.Events, ev) }

	if terrain != nil && terrain.HealPerTick > 0 {
		if healed := target.Heal(terrain.HealPerTick); healed > 0 {
			report.Healing += healed
			add(TickEvent{
				Kind:    TickTerrain,
				Amount:  healed,
				Message: fmt.Sprintf("The %s restores %d HP to %s.", terrain.Name, healed, target.Name),
			})
		}
	}

	// Iterate over a snapshot of ids; the slice is mutated as statuses expire.
	ids := make([]string, len(target.Statuses))
	for i, s := range target.Statuses {
		ids[i] = s.ID
	}

	for _, id := range ids {
		inst := target.Status(id)
		if inst == nil {
			continue
		}
		def := e.catalog.Statuses.GetByID(id)
		if def == nil {
			target.RemoveStatus(id)
			continue
		}
		if inst.Duration <= 0 {
			target.RemoveStatus(id)
			report.Expired = append(report.Expired, id)
			add(TickEvent{Status: id, Kind: TickExpired, Message: expiryMessage(target, def)})
			continue
		}

		switch {
		case def.IsConfusionLike():
			inst.JustApplied = false
			if !dice.Percent(e.src, def.SelfDamageChance) {
				target.RemoveStatus(id)
				report.Expired = append(report.Expired, id)
				add(TickEvent{Status: id, Kind: TickRecovered, Message: fmt.Sprintf("%s shakes off the %s.", target.Name, def.Name)})
				continue
			}
			expr := def.SelfDamageDice
			if expr == "" {
				expr = "1d4"
			}
			roll, err := dice.RollString(e.src, expr)
			if err != nil {
				roll = dice.Roll{Total: 1}
			}
			dealt := target.TakeDamage(roll.Total)
			report.Damage += dealt
			report.CanAct = false
			inst.Duration = 1
			add(TickEvent{
				Status:  id,
				Kind:    TickSelfHarm,
				Amount:  dealt,
				Message: fmt.Sprintf("%s is confused and hurts itself for %d!", target.Name, dealt),
			})
		case inst.JustApplied:
			inst.JustApplied = false
			if def.IsPeriodic() {
				add(TickEvent{Status: id, Kind: TickSuppressed})
			}
		case def.IsPeriodic():
			e.periodic(target, def, inst, &report)
		}

		if def.SkipsTurn {
			report.CanAct = false
			add(TickEvent{Status: id, Kind: TickSkip, Message: fmt.Sprintf("%s is held by %s and cannot act!", target.Name, def.Name)})
		}
		inst.Duration--
	}

	return report
}

func expiryMessage(target *Combatant, def *gamedata.StatusDef) string {
	if def.Message != "" {
		return def.Message
	}
	return fmt.Sprintf("%s's %s wears off.", target.Name, def.Name)
}

func (e *StatusEngine) periodic(target *Combatant, def *gamedata.StatusDef, inst *StatusInstance, report *TickReport) {
	stacks := max(inst.Stacks, 1)
	if def.DamagePerTick > 0 {
		dealt := target.TakeDamage(def.DamagePerTick * stacks)
		report.Damage += dealt
		report.Events = append(report.Events, TickEvent{
			Status:  def.ID,
			Kind:    TickDamage,
			Amount:  dealt,
			Message: fmt.Sprintf("%s takes %d damage from %s.", target.Name, dealt, def.Name),
		})
	}
	if def.HealPerTick > 0 {
		healed := target.Heal(def.HealPerTick * stacks)
		report.Healing += healed
		report.Events = append(report.Events, TickEvent{
			Status:  def.ID,
			Kind:    TickHeal,
			Amount:  healed,
			Message: fmt.Sprintf("%s recovers %d HP from %s.", target.Name, healed, def.Name),
		})
	}
	if def.ManaPerTick > 0 {
		restored := target.RestoreMana(def.ManaPerTick * stacks)
		report.Mana += restored
		report.Events = append(report.Events, TickEvent{
			Status:  def.ID,
			Kind:    TickMana,
			Amount:  restored,
			Message: fmt.Sprintf("%s regains %d mana from %s.", target.Name, restored, def.Name),
		})
	}
}

// CanAct reports whether no active status currently blocks target's turn.
func (e *StatusEngine) CanAct(target *Combatant) bool {
	for _, s := range target.Statuses {
		if def := e.catalog.Statuses.GetByID(s.ID); def != nil && def.SkipsTurn && s.Duration > 0 {
			return false
		}
	}
	return true
}

// Bonuses is the sum of status and passive contributions to a stat.
type Bonuses struct {
	Status  int
	Passive int
}

// Total returns the combined bonus.
func (b Bonuses) Total() int { return b.Status + b.Passive }

// Modifiers renders the non-zero contributions as additive modifiers.
func (b Bonuses) Modifiers() []Modifier {
	var mods []Modifier
	if b.Status != 0 {
		mods = append(mods, Add(b.Status, "status"))
	}
	if b.Passive != 0 {
		mods = append(mods, Add(b.Passive, "passive"))
	}
	return mods
}

// AttackBonus returns c's to-hit contributions.
func (e *StatusEngine) AttackBonus(c *Combatant) Bonuses {
	return e.bonuses(c,
		func(s *gamedata.StatusDef, stacks int) int { return s.AttackBonus * stacks },
		func(p *gamedata.PassiveDef) int { return p.AttackBonus })
}

// DefenseBonus returns c's defense contributions.
func (e *StatusEngine) DefenseBonus(c *Combatant) Bonuses {
	return e.bonuses(c,
		func(s *gamedata.StatusDef, stacks int) int { return s.DefenseBonus * stacks },
		func(p *gamedata.PassiveDef) int { return p.DefenseBonus })
}

// DamageBonus returns c's flat damage contributions.
func (e *StatusEngine) DamageBonus(c *Combatant) Bonuses {
	return e.bonuses(c,
		func(s *gamedata.StatusDef, stacks int) int { return s.DamageBonus * stacks },
		func(p *gamedata.PassiveDef) int { return p.DamageBonus })
}

func (e *StatusEngine) bonuses(
	c *Combatant,
	fromStatus func(*gamedata.StatusDef, int) int,
	fromPassive func(*gamedata.PassiveDef) int,
) Bonuses {
	var b Bonuses
	for _, s := range c.Statuses {
		if def := e.catalog.Statuses.GetByID(s.ID); def != nil {
			b.Status += fromStatus(def, max(s.Stacks, 1))
		}
	}
	for _, p := range e.catalog.Passives.GetMultiple(c.Passives) {
		b.Passive += fromPassive(p)
	}
	return b
}

// IsImmune reports whether one of c's passives blocks the status.
func (e *StatusEngine) IsImmune(c *Combatant, status string) bool {
	for _, p := range e.catalog.Passives.GetMultiple(c.Passives) {
		if slices.Contains(p.Immunities, status) {
			return true
		}
	}
	return false
}

// StaggerResult describes a stagger accumulation.
type StaggerResult struct {
	Added int
	Broke bool
	Stun  ApplyResult
}

// AddStagger accumulates stagger on target. Reaching the threshold resets the
// meter to zero and applies a single stun.
func (e *StatusEngine) AddStagger(target *Combatant, amount int) StaggerResult {
	if target.StaggerThreshold <= 0 || amount <= 0 {
		return StaggerResult{}
	}
	target.Stagger += amount
	res := StaggerResult{Added: amount}
	if target.Stagger >= target.StaggerThreshold {
		target.Stagger = 0
		res.Broke = true
		res.Stun = e.Apply(target, gamedata.StatusStun, 1)
	}
	return res
}

// DecayStagger lowers target's stagger meter, never below zero.
func (e *StatusEngine) DecayStagger(target *Combatant, amount int) int {
	if amount <= 0 || target.Stagger <= 0 {
		return 0
	}
	decayed := min(amount, target.Stagger)
	target.Stagger -= decayed
	return decayed
}

// GainCharge adds special charge to a player combatant, including passive
// bonuses, capped at MaxCharge. It returns true when this gain filled the
// meter.
func (e *StatusEngine) GainCharge(target *Combatant, amount int) bool {
	if !target.IsPlayer || amount <= 0 {
		return false
	}
	for _, p := range e.catalog.Passives.GetMultiple(target.Passives) {
		amount += p.ChargeGainBonus
	}
	before := target.Charge
	target.Charge = min(MaxCharge, before+amount)
	return before < MaxCharge && target.Charge == MaxCharge
}

// ChargeReady reports whether target's special is unlocked.
func ChargeReady(target *Combatant) bool {
	return target.Charge >= MaxCharge
}

// UseCharge consumes a full charge meter. It returns false, leaving the
// meter untouched, when the meter is not full.
func (e *StatusEngine) UseCharge(target *Combatant) bool {
	if !ChargeReady(target) {
		return false
	}
	target.Charge = 0
	return true
}
