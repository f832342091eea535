package world

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/a3zone/server/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubPeer struct {
	id     uint64
	mu     sync.Mutex
	pushed []string
}

func (p *stubPeer) ID() uint64 { return p.id }

func (p *stubPeer) Push(command string, _ any) {
	p.mu.Lock()
	p.pushed = append(p.pushed, command)
	p.mu.Unlock()
}

func (p *stubPeer) Post(any) bool { return true }

func loadContent(t *testing.T) *data.Content {
	t.Helper()
	c, err := data.LoadContent("../../data/yaml")
	require.NoError(t, err)
	return c
}

func newTestState(t *testing.T, policy RespawnPolicy) *State {
	t.Helper()
	s := NewState(loadContent(t), 50, policy, zaptest.NewLogger(t))
	t.Cleanup(s.Close)
	return s
}

func TestNewCharacterDefaults(t *testing.T) {
	c := loadContent(t)
	ch := NewCharacter("Hero", "Archer", c, StartStats{Level: 45, MaxHP: 120, SkillPoints: 3})

	assert.Equal(t, 45, ch.Level)
	assert.Equal(t, 120, ch.HP)
	assert.Equal(t, 1, ch.WorldID)
	assert.Equal(t, Position{X: 100, Y: 0, Z: 100}, ch.Position)
	assert.True(t, ch.HasWorld(1))
	assert.False(t, ch.HasWorld(2))
	assert.Equal(t, map[string]int{"precise_shot": 1, "evasion_step": 0, "burst_arrow": 0}, ch.Skills)
	assert.Equal(t, "Falcon", ch.Pet.Name)
	assert.False(t, ch.Pet.Summoned)
	require.Len(t, ch.Inventory, 2)
	_, ok := ch.FindItem("starter_bow")
	assert.True(t, ok)
	assert.Zero(t, ch.GearAttack())
}

func TestGearAttackAndCompanions(t *testing.T) {
	ch := &Character{}
	ch.Normalize()
	ch.Inventory = []Item{
		{ID: "a", Grade: 4, Rarity: data.RarityRare, Slot: data.SlotWeapon},
		{ID: "b", Grade: 7, Rarity: data.RarityEpic, Slot: data.SlotArmor},
		{ID: "c", Grade: 10, Rarity: data.RarityUnique, Slot: data.SlotWeapon},
	}
	ch.Equipped[data.SlotWeapon] = "c"
	ch.Equipped[data.SlotArmor] = "b"
	assert.Equal(t, 24+16, ch.GearAttack())

	assert.Zero(t, ch.CompanionBonusPct())
	ch.Pet.Summoned = true
	assert.Equal(t, 5, ch.CompanionBonusPct())
	ch.Mercenary.Recruited = true
	assert.Equal(t, 13, ch.CompanionBonusPct())

	assert.Equal(t, data.ElementNone, ch.WeaponElement())
	ch.Elemental[AttachWeapon] = data.ElementFire
	assert.Equal(t, data.ElementFire, ch.WeaponElement())
}

func TestRegistryNamesAreUnique(t *testing.T) {
	s := newTestState(t, RespawnTimer)
	a := &stubPeer{id: 1}
	b := &stubPeer{id: 2}

	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "Hero", WorldID: 1}, a))
	assert.ErrorIs(t, s.AddPlayer(PlayerSnapshot{Name: "Hero", WorldID: 1}, b), ErrAlreadyOnline)

	// only the owning peer can remove the entry
	assert.False(t, s.RemovePlayer("Hero", b))
	assert.Equal(t, 1, s.PlayerCount())
	assert.True(t, s.RemovePlayer("Hero", a))
	assert.Nil(t, s.Player("Hero"))
}

func TestRegistryFoldsNameCase(t *testing.T) {
	s := newTestState(t, RespawnTimer)
	a := &stubPeer{id: 1}

	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "Hero", WorldID: 1}, a))
	assert.ErrorIs(t, s.AddPlayer(PlayerSnapshot{Name: "hero", WorldID: 1}, &stubPeer{id: 2}), ErrAlreadyOnline)
	assert.ErrorIs(t, s.AddPlayer(PlayerSnapshot{Name: " HERO ", WorldID: 1}, &stubPeer{id: 3}), ErrAlreadyOnline)

	e := s.Player("HERO")
	require.NotNil(t, e)
	assert.Equal(t, "Hero", e.Snapshot().Name)

	s.PublishPlayer(PlayerSnapshot{Name: "hero", WorldID: 1, Level: 50})
	assert.Equal(t, 50, s.Player("Hero").Snapshot().Level)

	assert.True(t, s.RemovePlayer("hERO", a))
	assert.Equal(t, 0, s.PlayerCount())
}

func TestPublishPlayer(t *testing.T) {
	s := newTestState(t, RespawnTimer)
	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "Hero", WorldID: 1, Level: 45}, &stubPeer{id: 1}))
	s.PublishPlayer(PlayerSnapshot{Name: "Hero", WorldID: 1, Level: 46, Position: Position{X: 5}})
	snap := s.Player("Hero").Snapshot()
	assert.Equal(t, 46, snap.Level)
	assert.Equal(t, 5.0, snap.Position.X)

	// publishing for an offline player is a no-op
	s.PublishPlayer(PlayerSnapshot{Name: "Ghost"})
	assert.Nil(t, s.Player("Ghost"))
}

func TestEngageMobChecksWorld(t *testing.T) {
	s := newTestState(t, RespawnTimer)
	called := false
	err := s.EngageMob(2, "mob_wolf_01", func(*Mob) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrMobNotFound)
	assert.ErrorIs(t, s.EngageMob(1, "mob_nope", func(*Mob) error { return nil }), ErrMobNotFound)
	assert.False(t, called)
}

func TestMobRespawnsOnTimer(t *testing.T) {
	s := newTestState(t, RespawnTimer)
	s.respawnDelay = func(*Mob) time.Duration { return 10 * time.Millisecond }

	require.NoError(t, s.EngageMob(1, "mob_wolf_01", func(m *Mob) error {
		assert.True(t, m.Damage(10_000))
		return nil
	}))
	v, _ := s.Mob("mob_wolf_01")
	assert.Zero(t, v.HP)

	assert.Eventually(t, func() bool {
		v, _ := s.Mob("mob_wolf_01")
		return v.HP == v.MaxHP
	}, time.Second, 5*time.Millisecond)

	v, _ = s.Mob("mob_wolf_01")
	assert.InDelta(t, 112, v.Position.X, respawnJitter)
	assert.InDelta(t, 108, v.Position.Z, respawnJitter)
}

func TestMobPersistPolicyStaysDefeated(t *testing.T) {
	s := newTestState(t, RespawnPersist)
	s.respawnDelay = func(*Mob) time.Duration { return time.Millisecond }

	require.NoError(t, s.EngageMob(1, "mob_wolf_01", func(m *Mob) error {
		m.Damage(10_000)
		return nil
	}))
	time.Sleep(20 * time.Millisecond)
	v, _ := s.Mob("mob_wolf_01")
	assert.Zero(t, v.HP)

	ents := s.Entities(1, Position{X: 100, Z: 100}, "")
	for _, m := range ents.Mobs {
		assert.NotEqual(t, "mob_wolf_01", m.ID)
	}
}

func TestConcurrentMobDamageIsSerialised(t *testing.T) {
	s := newTestState(t, RespawnPersist)
	var defeats atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.EngageMob(1, "mob_bandit_01", func(m *Mob) error {
				if m.Damage(10) {
					defeats.Add(1)
				}
				return nil
			})
		}()
	}
	wg.Wait()
	v, _ := s.Mob("mob_bandit_01")
	assert.Equal(t, 0, v.HP) // 245 hp, 300 damage dealt
	assert.Equal(t, int32(1), defeats.Load())
}

func TestEntitiesVisibility(t *testing.T) {
	s := newTestState(t, RespawnTimer)
	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "Near", WorldID: 1, Position: Position{X: 110, Z: 110}}, &stubPeer{id: 1}))
	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "Far", WorldID: 1, Position: Position{X: 290, Z: 290}}, &stubPeer{id: 2}))
	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "Elsewhere", WorldID: 2, Position: Position{X: 100, Z: 100}}, &stubPeer{id: 3}))
	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "Me", WorldID: 1, Position: Position{X: 100, Z: 100}}, &stubPeer{id: 4}))

	ents := s.Entities(1, Position{X: 100, Z: 100}, "Me")
	require.Len(t, ents.Players, 1)
	assert.Equal(t, "Near", ents.Players[0].Name)
	assert.Len(t, ents.NPCs, 2)
	assert.Len(t, ents.Mobs, 2)

	ents = s.Entities(3, Position{X: 1000, Z: 1000}, "Me")
	assert.Empty(t, ents.Players)
	assert.Len(t, ents.NPCs, 1)
	assert.Len(t, ents.Mobs, 1)
}

func TestRecordUnlockFirstOnly(t *testing.T) {
	s := newTestState(t, RespawnTimer)
	assert.True(t, s.RecordUnlock(2, "Alpha"))
	assert.False(t, s.RecordUnlock(2, "Beta"))
	assert.True(t, s.RecordUnlock(3, "Beta"))
	assert.Equal(t, map[int]string{2: "Alpha", 3: "Beta"}, s.UnlockHistory())
}

func TestOnlinePlayersSorted(t *testing.T) {
	s := newTestState(t, RespawnTimer)
	for i, n := range []string{"Cid", "Ann", "Bob"} {
		require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: n}, &stubPeer{id: uint64(i + 1)}))
	}
	names := []string{}
	for _, p := range s.OnlinePlayers() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Ann", "Bob", "Cid"}, names)
}

func names(entries []*PlayerEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Snapshot().Name)
	}
	return out
}

func TestPlayersNearFollowsPublishedPosition(t *testing.T) {
	s := newTestState(t, RespawnTimer)
	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "A", WorldID: 1, Position: Position{X: 10, Z: 10}}, &stubPeer{id: 1}))
	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "B", WorldID: 1, Position: Position{X: 260, Z: 260}}, &stubPeer{id: 2}))
	require.NoError(t, s.AddPlayer(PlayerSnapshot{Name: "C", WorldID: 2, Position: Position{X: 10, Z: 10}}, &stubPeer{id: 3}))

	origin := Position{X: 0, Z: 0}
	assert.ElementsMatch(t, []string{"A"}, names(s.PlayersNear(1, "", origin)))
	assert.Empty(t, s.PlayersNear(1, "A", origin))

	s.PublishPlayer(PlayerSnapshot{Name: "B", WorldID: 1, Position: Position{X: 40, Z: 0}})
	assert.ElementsMatch(t, []string{"A", "B"}, names(s.PlayersNear(1, "", origin)))

	// either position counts
	far := Position{X: 280, Z: 280}
	assert.ElementsMatch(t, []string{"A", "B"}, names(s.PlayersNear(1, "", far, origin)))

	s.PublishPlayer(PlayerSnapshot{Name: "A", WorldID: 2, Position: Position{X: 10, Z: 10}})
	assert.ElementsMatch(t, []string{"A", "C"}, names(s.PlayersNear(2, "", origin)))

	assert.True(t, s.RemovePlayer("C", &stubPeer{id: 3}))
	assert.ElementsMatch(t, []string{"A"}, names(s.PlayersNear(2, "", origin)))
	assert.Equal(t, 2, s.grid.len())
}

func TestAOIGridNegativeCells(t *testing.T) {
	g := newAOIGrid(50)
	assert.Equal(t, cellKey{worldID: 1, cx: -1, cz: 0}, g.key(1, Position{X: -0.5, Z: 49}))
	assert.Equal(t, cellKey{worldID: 1, cx: 1, cz: -2}, g.key(1, Position{X: 50, Z: -51}))
}
