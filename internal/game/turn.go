package game

import (
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/samdwyer/storybattle/internal/combat"
	"github.com/samdwyer/storybattle/internal/dice"
)

// =============================================================================
// TURN SCHEDULER
// =============================================================================
//
// One round runs as a chain of steps, each separated by a presentation
// delay on the engine's pausable timers:
//
//   player action -> summon -> enemy tick -> enemy action -> player tick
//
// State changes happen synchronously inside a step; the step's
// notifications are delivered when its delay elapses, and the next step is
// scheduled once delivery (or the Animator) completes. A player who cannot
// act after their tick loops straight back to the summon step.
//
// Every continuation captures the engine generation. End and Reset bump it,
// so a continuation that fires late is a no-op.

// ExecuteAction submits a player action. It returns false, changing
// nothing, when no battle is waiting for input; this includes the window
// while a previous action is still resolving. Otherwise cb is called with
// the result: immediately for a rejected action, or after the action's
// presentation delay.
func (e *Engine) ExecuteAction(kind ActionKind, params ActionParams, cb func(ActionResult)) bool {
	s := e.session
	if s == nil || e.locked || s.Phase() != PhasePlayer {
		return false
	}
	if cb == nil {
		cb = func(ActionResult) {}
	}

	e.locked = true
	_ = s.machine.Event(e.ctx, evAct)

	_, span := e.tracer.Start(e.ctx, "battle.action")
	span.SetAttributes(
		attribute.String("action", string(kind)),
		attribute.Int("turn", s.Turn),
	)
	defer span.End()

	var b notes
	res := e.perform(kind, params, &b)
	span.SetAttributes(attribute.Bool("success", res.Success))
	if res.Attack != nil {
		span.SetAttributes(
			attribute.Bool("hit", res.Attack.Hit),
			attribute.Int("damage", res.Attack.Damage),
		)
	}

	if !res.Success {
		_ = s.machine.Event(e.ctx, evYield)
		e.locked = false
		e.log.Debug("action rejected",
			zap.String("action", string(kind)),
			zap.String("reason", res.Reason))
		cb(res)
		return true
	}

	e.await(s.Timing.StepDelay, b, func() {
		cb(res)
		// cb may have ended the battle.
		if e.session == s && s.Outcome == OutcomeNone {
			e.summonStep()
		}
	})
	return true
}

// await delivers batch and continues with next after delay.
func (e *Engine) await(delay time.Duration, batch notes, next func()) {
	gen := e.gen
	e.timers.Schedule(delay, func() {
		if gen != e.gen {
			return
		}
		e.deliver(batch)
		if next == nil {
			return
		}
		if e.animator == nil || len(batch) == 0 {
			next()
			return
		}
		var once sync.Once
		e.animator.Animate(batch, func() {
			once.Do(func() {
				if gen == e.gen {
					next()
				}
			})
		})
	})
}

func (e *Engine) summonStep() {
	s := e.session
	if s.Summon == nil {
		e.enemyTickStep()
		return
	}

	var b notes
	res := e.resolver.ResolveSummonAttack(s.Summon, s.Enemy.Combatant, s.Terrain)
	e.applyAttack(SideSummon, nil, s.Enemy.Combatant, &res, &b)

	s.Summon.TurnsLeft--
	if s.Summon.TurnsLeft <= 0 {
		b.log(SideSummon, fmt.Sprintf("%s fades away.", s.Summon.Name()))
		s.Summon = nil
	}

	if e.checkEnd(&b) {
		e.await(s.Timing.StepDelay, b, nil)
		return
	}
	e.await(s.Timing.StepDelay, b, e.enemyTickStep)
}

func (e *Engine) enemyTickStep() {
	s := e.session
	enemy := s.Enemy.Combatant

	var b notes
	r := e.status.Tick(enemy, s.Terrain)
	b.log(SideEnemy, r.Messages()...)
	if r.Damage > 0 || r.Healing > 0 {
		b.health(SideEnemy, enemy)
	}
	e.status.DecayStagger(enemy, s.Rules.StaggerDecay)

	if e.checkEnd(&b) {
		e.await(s.Timing.TickDelay, b, nil)
		return
	}
	// Skipped turns leave the intent countdown where it is.
	next := e.enemyActionStep
	if !r.CanAct {
		next = e.playerTickStep
	}
	e.await(s.Timing.TickDelay, b, next)
}

func (e *Engine) enemyActionStep() {
	s := e.session
	enemy := s.Enemy.Combatant

	_, span := e.tracer.Start(e.ctx, "battle.enemy_turn")
	span.SetAttributes(attribute.Int("turn", s.Turn))
	defer span.End()

	var b notes
	if len(s.Enemy.Def.Dialogue) > 0 {
		if s.DialogueCooldown > 0 {
			s.DialogueCooldown--
		} else if dice.Percent(e.src, s.Rules.DialogueChance) {
			b.add(Notification{Kind: NoteDialogue, Side: SideEnemy, Text: s.Enemy.Line(e.src)})
			s.DialogueCooldown = s.Rules.DialogueCooldown
		}
	}

	var guard combat.ActionModifiers
	if s.Stance.Active() {
		guard = s.Stance.Mods
	}
	out := e.resolver.EnemyTurn(combat.EnemyTurnInput{
		Enemy:   enemy,
		Player:  s.Player,
		Turn:    s.Turn,
		Planner: e.planner,
		Guard:   guard,
		Terrain: s.Terrain,
	})
	if out.Announced != nil {
		it := *out.Announced
		b.add(Notification{Kind: NoteIntent, Side: SideEnemy, Intent: &it})
	}
	if out.Executed != nil {
		b.add(Notification{Kind: NoteIntent, Side: SideEnemy})
		span.SetAttributes(attribute.String("intent", out.Executed.AbilityID))
	}
	b.log(SideEnemy, out.Messages...)

	if out.Attack != nil {
		e.applyAttack(SideEnemy, enemy, s.Player, out.Attack, &b)
		span.SetAttributes(attribute.Int("damage", out.Attack.Damage))

		if s.Stance.Mods.CounterAttack && s.Player.IsAlive() && enemy.IsAlive() {
			b.log(SidePlayer, fmt.Sprintf("%s counter-attacks!", s.Player.Name))
			counter := e.resolver.ResolveAttack(combat.AttackInput{
				Attacker: s.Player,
				Defender: enemy,
				Terrain:  s.Terrain,
			})
			e.applyAttack(SidePlayer, s.Player, enemy, &counter, &b)
		}
		s.Stance = Stance{}
	}

	if e.checkEnd(&b) {
		e.await(s.Timing.EnemyDelay, b, nil)
		return
	}
	e.await(s.Timing.EnemyDelay, b, e.playerTickStep)
}

func (e *Engine) playerTickStep() {
	s := e.session
	player := s.Player

	var b notes
	r := e.status.Tick(player, s.Terrain)
	b.log(SidePlayer, r.Messages()...)
	if r.Damage > 0 || r.Healing > 0 {
		b.health(SidePlayer, player)
	}
	if r.Mana != 0 {
		b.mana(SidePlayer, player)
	}
	e.status.DecayStagger(player, s.Rules.StaggerDecay)
	s.Turn++

	if s.Rules.MaxTurns > 0 && s.Turn > s.Rules.MaxTurns && s.Outcome == OutcomeNone {
		b.log("", "The fight drags on until both sides withdraw.")
		e.conclude(OutcomeFlee, &b)
	}
	if e.checkEnd(&b) || s.Outcome != OutcomeNone {
		e.await(s.Timing.TickDelay, b, nil)
		return
	}
	if !r.CanAct {
		e.await(s.Timing.TickDelay, b, e.summonStep)
		return
	}
	e.await(s.Timing.TickDelay, b, e.yieldToPlayer)
}

func (e *Engine) yieldToPlayer() {
	s := e.session
	_ = s.machine.Event(e.ctx, evYield)
	e.locked = false
	e.presenter.Notify(Notification{Kind: NoteTurn, Side: SidePlayer, Text: fmt.Sprintf("Turn %d", s.Turn)})
}

// checkEnd concludes the battle if a combatant has fallen. Player defeat
// takes precedence.
func (e *Engine) checkEnd(b *notes) bool {
	s := e.session
	switch {
	case !s.Player.IsAlive():
		e.conclude(OutcomeLose, b)
	case !s.Enemy.IsAlive():
		e.conclude(OutcomeWin, b)
	default:
		return false
	}
	return true
}

func (e *Engine) conclude(o Outcome, b *notes) {
	s := e.session
	if s.Outcome != OutcomeNone {
		return
	}
	s.Outcome = o
	if s.machine.Can(evFinish) {
		_ = s.machine.Event(e.ctx, evFinish)
	}
	s.Profile.CarryFrom(s.Player)
	e.carry = s.Profile.Clone()

	var text string
	switch o {
	case OutcomeWin:
		text = fmt.Sprintf("%s is defeated!", s.Enemy.Name)
	case OutcomeLose:
		text = fmt.Sprintf("%s has fallen...", s.Player.Name)
	case OutcomeFlee:
		text = fmt.Sprintf("%s escapes the battle.", s.Player.Name)
	default:
		text = "The battle is over."
	}
	b.add(Notification{Kind: NoteBattleEnded, Text: text, Outcome: o})

	e.log.Info("battle concluded",
		zap.String("session", s.ID),
		zap.String("outcome", string(o)),
		zap.Int("turn", s.Turn))
}

// applyAttack commits a resolved attack: barrier, damage, charge, stagger
// and inflicted statuses. attacker is nil for summons.
func (e *Engine) applyAttack(side Side, attacker, defender *combat.Combatant, res *combat.AttackResult, b *notes) {
	s := e.session
	b.add(Notification{Kind: NoteRoll, Side: side, Attack: res})
	b.log(side, res.Messages...)

	target, targetSide := defender, e.sideOf(defender)
	if res.SelfHit && attacker != nil {
		target, targetSide = attacker, side
	}

	if res.Hit {
		dmg := res.Damage
		if !target.IsPlayer {
			through, absorbed := e.barrier.Absorb(target, dmg)
			if absorbed > 0 {
				dmg = through
				left := e.barrier.Points(target)
				b.add(Notification{Kind: NoteBarrier, Side: targetSide, Amount: absorbed, Current: left})
				b.log(targetSide, fmt.Sprintf("%s's barrier absorbs %d damage.", target.Name, absorbed))
				if left == 0 {
					b.log(targetSide, fmt.Sprintf("%s's barrier shatters!", target.Name))
				}
			}
		}

		dealt := target.TakeDamage(dmg)
		if res.Critical {
			b.log(side, "Critical hit!")
		}
		b.add(Notification{Kind: NoteDamage, Side: targetSide, Amount: dealt})
		b.log(side, fmt.Sprintf("%s takes %d damage.", target.Name, dealt))
		b.health(targetSide, target)

		if attacker != nil && attacker.IsPlayer && !res.SelfHit && dealt > 0 {
			e.gainCharge(attacker, s.Rules.ChargeOnHit, b)
		}
		if target.IsPlayer && dealt > 0 {
			e.gainCharge(target, s.Rules.ChargeOnHurt, b)
		}

		if !res.SelfHit && target.IsAlive() {
			st := e.status.AddStagger(target, res.Stagger)
			if st.Broke {
				b.log(targetSide, fmt.Sprintf("%s staggers!", target.Name))
				if st.Stun.Applied || st.Stun.Refreshed {
					b.add(Notification{Kind: NoteStatus, Side: targetSide, Text: st.Stun.Message})
				}
				if !target.IsPlayer {
					if it := e.planner.Interrupt(s.Turn); it != nil {
						b.log(targetSide, fmt.Sprintf("%s's %s is interrupted!", target.Name, it.Ability.Name))
						b.add(Notification{Kind: NoteIntent, Side: targetSide})
					}
				}
			}
		}
	}

	e.inflict(res.Inflicts, b)
}

func (e *Engine) gainCharge(c *combat.Combatant, amount int, b *notes) {
	if e.status.GainCharge(c, amount) {
		b.add(Notification{Kind: NoteChargeReady, Side: SidePlayer, Current: c.Charge, Max: combat.MaxCharge})
		b.log(SidePlayer, "Special charge is full!")
	}
}

func (e *Engine) inflict(apps []combat.StatusApplication, b *notes) {
	for _, app := range apps {
		r := e.status.Apply(app.Target, app.Status, app.Stacks)
		if r.Unknown {
			e.warnOnce("status:"+app.Status, "unknown status, not applied", zap.String("status", app.Status))
			continue
		}
		b.add(Notification{Kind: NoteStatus, Side: e.sideOf(app.Target), Text: r.Message})
	}
}

func (e *Engine) sideOf(c *combat.Combatant) Side {
	if c == e.session.Player {
		return SidePlayer
	}
	return SideEnemy
}

// perform validates and commits one player action. A failed result means
// nothing was mutated.
func (e *Engine) perform(kind ActionKind, p ActionParams, b *notes) ActionResult {
	s := e.session
	var res ActionResult
	switch kind {
	case ActionAttack:
		res = e.doAttack(p, b)
	case ActionSkill:
		res = e.doSkill(p, b)
	case ActionDefend:
		res = e.doDefend(p, b)
	case ActionDodge:
		res = e.doDodge(p, b)
	case ActionItem:
		res = e.doItem(p, b)
	case ActionSummon:
		res = e.doSummon(p, b)
	case ActionSpecial:
		res = e.doSpecial(p, b)
	case ActionFlee:
		res = e.doFlee(p, b)
	default:
		return fail(kind, ReasonUnknownAction, fmt.Sprintf("Unknown action %q.", kind))
	}
	if !res.Success {
		return res
	}

	if p.Mods.EndsDefenseStance && kind != ActionDefend && kind != ActionDodge {
		s.Stance = Stance{}
	}
	e.checkEnd(b)
	for _, n := range *b {
		if n.Kind == NoteLog {
			res.Messages = append(res.Messages, n.Text)
		}
	}
	return res
}

func (e *Engine) doAttack(p ActionParams, b *notes) ActionResult {
	s := e.session
	res := e.resolver.ResolveAttack(combat.AttackInput{
		Attacker: s.Player,
		Defender: s.Enemy.Combatant,
		Mods:     p.Mods,
		Terrain:  s.Terrain,
	})
	e.applyAttack(SidePlayer, s.Player, s.Enemy.Combatant, &res, b)
	return ActionResult{Kind: ActionAttack, Success: true, Attack: &res}
}

func (e *Engine) doSkill(p ActionParams, b *notes) ActionResult {
	s := e.session
	sk := e.catalog.Skills.GetByID(p.SkillID)
	if sk == nil || !s.Profile.HasSkill(p.SkillID) {
		return fail(ActionSkill, ReasonUnknownSkill, fmt.Sprintf("%s doesn't know that skill.", s.Player.Name))
	}
	if s.Player.Mana < sk.ManaCost {
		return fail(ActionSkill, ReasonNoMana, fmt.Sprintf("Not enough mana for %s.", sk.Name))
	}

	s.Player.SpendMana(sk.ManaCost)
	if sk.ManaCost > 0 {
		b.mana(SidePlayer, s.Player)
	}

	out := e.resolver.ApplySkill(combat.SkillInput{
		User:    s.Player,
		Target:  s.Enemy.Combatant,
		Skill:   sk,
		Mods:    p.Mods,
		Terrain: s.Terrain,
	})
	b.log(SidePlayer, out.Messages...)
	if out.Attack != nil {
		e.applyAttack(SidePlayer, s.Player, s.Enemy.Combatant, out.Attack, b)
		return ActionResult{Kind: ActionSkill, Success: true, Attack: out.Attack}
	}

	if out.Heal.Rolled > 0 {
		applied := s.Player.Heal(out.Heal.Applied)
		b.add(Notification{Kind: NoteHeal, Side: SidePlayer, Amount: applied, Rolled: out.Heal.Rolled})
		b.health(SidePlayer, s.Player)
	}
	e.inflict(out.Inflicts, b)
	return ActionResult{Kind: ActionSkill, Success: true}
}

func (e *Engine) doDefend(p ActionParams, b *notes) ActionResult {
	s := e.session
	mods := combat.ActionModifiers{
		DamageReduction: max(s.Rules.DefendReduction, p.Mods.DamageReduction),
		CounterAttack:   p.Mods.CounterAttack,
	}
	s.Stance = Stance{Kind: string(ActionDefend), Mods: mods}
	b.log(SidePlayer, fmt.Sprintf("%s braces for the next blow.", s.Player.Name))
	return ActionResult{Kind: ActionDefend, Success: true}
}

func (e *Engine) doDodge(p ActionParams, b *notes) ActionResult {
	s := e.session
	evaded := p.Mods.ForcedMiss || dice.D20(e.src)+p.Mods.HitBonus >= s.Rules.DodgeDC
	s.Stance = Stance{Kind: string(ActionDodge), Mods: combat.ActionModifiers{
		ForcedMiss:    evaded,
		CounterAttack: evaded && p.Mods.CounterAttack,
	}}
	b.log(SidePlayer, fmt.Sprintf("%s gets ready to dodge.", s.Player.Name))
	return ActionResult{Kind: ActionDodge, Success: true}
}

func (e *Engine) doItem(p ActionParams, b *notes) ActionResult {
	s := e.session
	item := e.catalog.Items.GetByID(p.ItemID)
	if item == nil {
		return fail(ActionItem, ReasonUnknownItem, "That item doesn't exist.")
	}
	if s.Profile.Items.Count(p.ItemID) <= 0 {
		return fail(ActionItem, ReasonNoItem, fmt.Sprintf("No %s left.", item.Name))
	}

	s.Profile.Items.Take(p.ItemID)
	out := combat.ResolveItem(s.Player, item, e.src)
	b.log(SidePlayer, out.Messages...)
	if out.Heal.Rolled > 0 {
		applied := s.Player.Heal(out.Heal.Applied)
		b.add(Notification{Kind: NoteHeal, Side: SidePlayer, Amount: applied, Rolled: out.Heal.Rolled})
		b.health(SidePlayer, s.Player)
	}
	if out.Mana.Rolled > 0 {
		s.Player.RestoreMana(out.Mana.Applied)
		b.mana(SidePlayer, s.Player)
	}
	for _, id := range e.status.Cure(s.Player, out.Cures) {
		b.add(Notification{Kind: NoteStatus, Side: SidePlayer, Text: fmt.Sprintf("%s is cured of %s.", s.Player.Name, id)})
	}
	e.inflict(out.Inflicts, b)
	return ActionResult{Kind: ActionItem, Success: true}
}

func (e *Engine) doSummon(p ActionParams, b *notes) ActionResult {
	s := e.session
	if e.catalog.Summons.Count() == 0 {
		return fail(ActionSummon, ReasonFeatureDisabled, "Summoning is unavailable.")
	}
	def := e.catalog.Summons.GetByID(p.SummonID)
	if def == nil {
		return fail(ActionSummon, ReasonUnknownSummon, "Nothing answers the call.")
	}
	if s.Summon != nil {
		return fail(ActionSummon, ReasonSummonActive, fmt.Sprintf("%s is already fighting alongside you.", s.Summon.Name()))
	}
	if s.Player.Mana < def.ManaCost {
		return fail(ActionSummon, ReasonNoMana, fmt.Sprintf("Not enough mana to summon %s.", def.Name))
	}

	s.Player.SpendMana(def.ManaCost)
	b.mana(SidePlayer, s.Player)
	s.Summon = &combat.Summon{Def: def, TurnsLeft: max(def.Duration, 1)}
	b.log(SideSummon, fmt.Sprintf("%s summons %s!", s.Player.Name, def.Name))
	return ActionResult{Kind: ActionSummon, Success: true}
}

func (e *Engine) doSpecial(p ActionParams, b *notes) ActionResult {
	s := e.session
	if e.catalog.Specials.Count() == 0 {
		return fail(ActionSpecial, ReasonFeatureDisabled, "Special attacks are unavailable.")
	}
	sp := e.catalog.Specials.GetByID(s.Profile.Special)
	if sp == nil {
		return fail(ActionSpecial, ReasonNoSpecial, fmt.Sprintf("%s has no special attack.", s.Player.Name))
	}
	if !combat.ChargeReady(s.Player) {
		return fail(ActionSpecial, ReasonChargeNotReady, "Special charge is not full yet.")
	}

	e.status.UseCharge(s.Player)
	b.add(Notification{Kind: NoteChargeReady, Side: SidePlayer, Current: 0, Max: combat.MaxCharge})
	res := e.resolver.ResolveSpecial(combat.SpecialInput{
		Attacker: s.Player,
		Defender: s.Enemy.Combatant,
		Special:  sp,
		Mods:     p.Mods,
		Terrain:  s.Terrain,
	})
	e.applyAttack(SidePlayer, s.Player, s.Enemy.Combatant, &res, b)
	return ActionResult{Kind: ActionSpecial, Success: true, Attack: &res}
}

func (e *Engine) doFlee(p ActionParams, b *notes) ActionResult {
	s := e.session
	roll := dice.D20(e.src) + s.Player.AttackBonus + p.Mods.HitBonus
	if roll >= s.Rules.FleeDC {
		e.conclude(OutcomeFlee, b)
	} else {
		b.log(SidePlayer, fmt.Sprintf("%s couldn't get away!", s.Player.Name))
	}
	return ActionResult{Kind: ActionFlee, Success: true}
}
