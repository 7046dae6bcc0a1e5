package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blockbattle/internal/dependencies/mocks"
	"github.com/mcoot/blockbattle/internal/model"
	"github.com/mcoot/blockbattle/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	clock    *mocks.MockClock
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = NewRegistry(s.clock, testutil.NopLogger())
}

func players(ids ...string) []model.Player {
	out := make([]model.Player, len(ids))
	for i, id := range ids {
		out[i] = model.Player{ID: model.PlayerID(id), Nickname: "nick-" + id}
	}
	return out
}

// Start tests

func (s *RegistrySuite) TestStart() {
	snap := s.registry.Start("room-1", players("a", "b"))

	s.True(snap.IsPlaying)
	s.Equal(s.clock.Now(), snap.StartedAt)
	s.Require().Len(snap.Players, 2)
	s.Equal(1, snap.Players[0].Level)
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestStartOverwrites() {
	s.registry.Start("room-1", players("a", "b"))
	s.registry.Eliminate("room-1", "b")

	snap := s.registry.Start("room-1", players("a", "b", "c"))
	s.Len(snap.Players, 3)
	found, ok := s.registry.Find("room-1")
	s.Require().True(ok)
	s.Len(found.Players, 3)
	for _, p := range found.Players {
		s.True(p.IsAlive)
	}
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestFindMissing() {
	_, ok := s.registry.Find("nope")
	s.False(ok)
}

// UpdatePlayer tests

func (s *RegistrySuite) TestUpdatePlayer() {
	s.registry.Start("room-1", players("a", "b"))

	state, ok := s.registry.UpdatePlayer("room-1", "a", model.Progress{Score: 300, Level: 2, LinesCleared: 4})
	s.True(ok)
	s.Equal(300, state.Score)
	s.Equal("nick-a", state.Nickname)
}

func (s *RegistrySuite) TestUpdatePlayerStaleIsDropped() {
	s.registry.Start("room-1", players("a", "b", "c"))
	s.registry.Eliminate("room-1", "a")

	_, ok := s.registry.UpdatePlayer("room-1", "a", model.Progress{Score: 999})
	s.False(ok)

	_, ok = s.registry.UpdatePlayer("nope", "a", model.Progress{Score: 1})
	s.False(ok)
}

// Attack tests

func (s *RegistrySuite) TestFourPlayerAttack() {
	s.registry.Start("room-1", players("a", "b", "c", "d"))
	s.registry.Eliminate("room-1", "d")

	result, ok := s.registry.Attack("room-1", "a", 4)
	s.Require().True(ok)
	s.Equal(4, result.AttackLines)
	s.Equal(model.PlayerID("a"), result.Attacker.ID)
	s.Equal([]model.PlayerID{"b", "c"}, result.Targets)
}

func (s *RegistrySuite) TestAttackSingleLineHasNoTargets() {
	s.registry.Start("room-1", players("a", "b"))

	result, ok := s.registry.Attack("room-1", "a", 1)
	s.Require().True(ok)
	s.Equal(0, result.AttackLines)
	s.Empty(result.Targets)
}

func (s *RegistrySuite) TestAttackByEliminatedPlayerIgnored() {
	s.registry.Start("room-1", players("a", "b", "c"))
	s.registry.Eliminate("room-1", "a")

	_, ok := s.registry.Attack("room-1", "a", 4)
	s.False(ok)

	_, ok = s.registry.Attack("nope", "a", 4)
	s.False(ok)
}

// Eliminate and Finish tests

func (s *RegistrySuite) TestTwoPlayerMatch() {
	s.registry.Start("room-1", players("H", "P"))

	rank, shouldEnd := s.registry.Eliminate("room-1", "P")
	s.Equal(2, rank)
	s.True(shouldEnd)
	s.True(s.registry.ShouldEnd("room-1"))

	result, ok := s.registry.Finish("room-1")
	s.Require().True(ok)
	s.Equal(model.RoomID("room-1"), result.RoomID)
	s.Equal([]model.RankingEntry{
		{PlayerID: "H", Nickname: "nick-H", Rank: 1},
		{PlayerID: "P", Nickname: "nick-P", Rank: 2},
	}, result.Ranking)
	s.False(s.registry.ShouldEnd("room-1"))
}

func (s *RegistrySuite) TestEliminateTwiceReturnsNoRank() {
	s.registry.Start("room-1", players("a", "b", "c"))

	rank, _ := s.registry.Eliminate("room-1", "a")
	s.Equal(3, rank)
	rank, shouldEnd := s.registry.Eliminate("room-1", "a")
	s.Equal(model.NoRank, rank)
	s.False(shouldEnd)

	rank, _ = s.registry.Eliminate("nope", "a")
	s.Equal(model.NoRank, rank)
}

func (s *RegistrySuite) TestEliminateAfterFinishIsIgnored() {
	s.registry.Start("room-1", players("a", "b"))
	s.registry.Eliminate("room-1", "b")
	s.registry.Finish("room-1")

	rank, _ := s.registry.Eliminate("room-1", "a")
	s.Equal(model.NoRank, rank)
}

func (s *RegistrySuite) TestFinishIdempotent() {
	s.registry.Start("room-1", players("a", "b"))
	s.registry.Eliminate("room-1", "a")

	first, _ := s.registry.Finish("room-1")
	s.clock.Advance(time.Minute)
	second, _ := s.registry.Finish("room-1")

	s.Equal(first, second)
}

func (s *RegistrySuite) TestFinishWithSeveralSurvivors() {
	s.registry.Start("room-1", players("a", "b", "c"))
	s.registry.Eliminate("room-1", "c")

	result, ok := s.registry.Finish("room-1")
	s.Require().True(ok)
	s.Equal([]model.RankingEntry{
		{PlayerID: "a", Nickname: "nick-a", Rank: 1},
		{PlayerID: "c", Nickname: "nick-c", Rank: 3},
		{PlayerID: "b", Nickname: "nick-b", Rank: 0},
	}, result.Ranking)
}

func (s *RegistrySuite) TestFinishMissing() {
	_, ok := s.registry.Finish("nope")
	s.False(ok)
}

// Delete tests

func (s *RegistrySuite) TestDeleteKeepsPlayingMatch() {
	s.registry.Start("room-1", players("a", "b"))

	s.False(s.registry.Delete("room-1"))
	s.Equal(1, s.registry.Count())

	s.registry.Eliminate("room-1", "a")
	s.registry.Finish("room-1")
	s.True(s.registry.Delete("room-1"))
	s.Equal(0, s.registry.Count())
}

func (s *RegistrySuite) TestForceDelete() {
	s.registry.Start("room-1", players("a", "b"))

	s.True(s.registry.ForceDelete("room-1"))
	s.False(s.registry.ForceDelete("room-1"))
	_, ok := s.registry.Find("room-1")
	s.False(ok)
}
