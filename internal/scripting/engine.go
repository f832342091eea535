package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the game formulas.
// LState is not goroutine-safe and sessions run concurrently, so every call
// holds mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"combat", "character"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// AttackContext holds pre-packed data for one attack exchange. Rolls are
// made by the caller so the formula stays deterministic.
type AttackContext struct {
	AttackerLevel int
	GearAtk       int
	BonusPct      int // companion bonus in percent
	SkillBonus    int
	WeaponElement string
	EvasionRank   int
	TargetLevel   int
	TargetElement string
	DamageRoll    int     // 0..7
	RiskRoll      float64 // [0,1)
}

// AttackResult is returned by calc_attack.
type AttackResult struct {
	Damage       int
	Died         bool
	DeathChance  float64
	ElementBonus int // percent applied for the weapon element
}

// CalcAttack calls the Lua calc_attack function.
func (e *Engine) CalcAttack(ctx AttackContext) AttackResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("calc_attack")
	if fn == lua.LNil {
		e.log.Error("lua function calc_attack not found")
		return AttackResult{Damage: 1}
	}

	t := e.vm.NewTable()

	atk := e.vm.NewTable()
	atk.RawSetString("level", lua.LNumber(ctx.AttackerLevel))
	atk.RawSetString("gear_atk", lua.LNumber(ctx.GearAtk))
	atk.RawSetString("bonus_pct", lua.LNumber(ctx.BonusPct))
	atk.RawSetString("skill_bonus", lua.LNumber(ctx.SkillBonus))
	atk.RawSetString("element", lua.LString(ctx.WeaponElement))
	atk.RawSetString("evasion_rank", lua.LNumber(ctx.EvasionRank))
	t.RawSetString("attacker", atk)

	tgt := e.vm.NewTable()
	tgt.RawSetString("level", lua.LNumber(ctx.TargetLevel))
	tgt.RawSetString("element", lua.LString(ctx.TargetElement))
	t.RawSetString("target", tgt)

	rolls := e.vm.NewTable()
	rolls.RawSetString("damage", lua.LNumber(ctx.DamageRoll))
	rolls.RawSetString("risk", lua.LNumber(ctx.RiskRoll))
	t.RawSetString("rolls", rolls)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_attack error", zap.Error(err))
		return AttackResult{Damage: 1}
	}

	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	rt, ok := ret.(*lua.LTable)
	if !ok {
		return AttackResult{Damage: 1}
	}
	res := AttackResult{
		Damage:       lInt(rt, "damage"),
		Died:         lua.LVAsBool(rt.RawGetString("died")),
		DeathChance:  float64(lua.LVAsNumber(rt.RawGetString("death_chance"))),
		ElementBonus: lInt(rt, "element_bonus"),
	}
	if res.Damage < 1 {
		res.Damage = 1
	}
	return res
}

// PvPPenalty is the attacker-side cost of attacking another player.
type PvPPenalty struct {
	LevelDiff int `json:"level_diff"`
	XPDebt    int `json:"xp_debt"`
	PKGain    int `json:"pk_gain"`
	HonorLoss int `json:"honor_loss"`
	HonorGain int `json:"honor_gain,omitempty"`
}

// CalcPvPPenalty calls the Lua calc_pvp_penalty function.
func (e *Engine) CalcPvPPenalty(attackerLevel, victimLevel int) PvPPenalty {
	e.mu.Lock()
	defer e.mu.Unlock()

	fallback := PvPPenalty{LevelDiff: attackerLevel - victimLevel}
	fn := e.vm.GetGlobal("calc_pvp_penalty")
	if fn == lua.LNil {
		e.log.Error("lua function calc_pvp_penalty not found")
		return fallback
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(attackerLevel), lua.LNumber(victimLevel)); err != nil {
		e.log.Error("lua calc_pvp_penalty error", zap.Error(err))
		return fallback
	}

	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	rt, ok := ret.(*lua.LTable)
	if !ok {
		return fallback
	}
	return PvPPenalty{
		LevelDiff: lInt(rt, "level_diff"),
		XPDebt:    lInt(rt, "xp_debt"),
		PKGain:    lInt(rt, "pk_gain"),
		HonorLoss: lInt(rt, "honor_loss"),
		HonorGain: lInt(rt, "honor_gain"),
	}
}

// CalcDeathDebt returns the xp debt added when a character of level dies.
func (e *Engine) CalcDeathDebt(level int) int {
	if v, ok := e.callIntFunc("calc_death_debt", level); ok {
		return v
	}
	return 25 + level*3
}

// XPForLevel returns the xp needed to advance past level.
func (e *Engine) XPForLevel(level int) int {
	if v, ok := e.callIntFunc("xp_for_level", level); ok && v > 0 {
		return v
	}
	return 100 + level*15
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// callIntFunc calls a Lua function with int args and returns an int result.
func (e *Engine) callIntFunc(name string, args ...int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name))
		return 0, false
	}

	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lArgs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result)), true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	e.vm.Close()
	e.mu.Unlock()
}
