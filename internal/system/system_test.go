package system

import (
	"sync"
	"testing"

	"github.com/a3zone/server/internal/config"
	"github.com/a3zone/server/internal/data"
	"github.com/a3zone/server/internal/scripting"
	"github.com/a3zone/server/internal/world"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubRoller returns fixed rolls.
type stubRoller struct {
	intn  func(n int) int
	float float64
}

func (r stubRoller) Intn(n int) int   { return r.intn(n) }
func (r stubRoller) Float64() float64 { return r.float }

var (
	// best damage roll, never dies, never drops anything below 100%
	maxRolls = stubRoller{intn: func(n int) int { return n - 1 }, float: 0.999}
	// every drop hits with its minimum quantity, legendary included
	luckyRolls = stubRoller{intn: func(int) int { return 0 }, float: 0.999}
	// dies whenever the death chance is above zero
	doomRolls = stubRoller{intn: func(n int) int { return n - 1 }, float: 0}
)

type recordingPeer struct {
	id     uint64
	refuse bool

	mu     sync.Mutex
	events []any
	pushed []string
}

func (p *recordingPeer) ID() uint64 { return p.id }

func (p *recordingPeer) Push(command string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, command)
}

func (p *recordingPeer) Post(ev any) bool {
	if p.refuse {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return true
}

var (
	contentOnce sync.Once
	content     *data.Content
	contentErr  error
)

func loadContent(t *testing.T) *data.Content {
	t.Helper()
	contentOnce.Do(func() {
		content, contentErr = data.LoadContent("../../data/yaml")
	})
	require.NoError(t, contentErr)
	return content
}

func newEnv(t *testing.T, rolls Roller) *Env {
	t.Helper()
	log := zaptest.NewLogger(t)
	c := loadContent(t)

	eng, err := scripting.NewEngine("../../scripts", log)
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	st := world.NewState(c, 50, world.RespawnPersist, log)
	t.Cleanup(st.Close)

	return &Env{
		Gameplay:  config.Defaults().Gameplay,
		Content:   c,
		World:     st,
		Scripting: eng,
		Rand:      rolls,
		Log:       log,
	}
}

func newSystems(t *testing.T, rolls Roller) *Systems {
	t.Helper()
	return New(newEnv(t, rolls))
}

func newHero(t *testing.T, name, class string) *world.Character {
	t.Helper()
	return world.NewCharacter(name, class, loadContent(t), world.StartStats{Level: 45, MaxHP: 120, SkillPoints: 3})
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return ReasonOf(err)
}
