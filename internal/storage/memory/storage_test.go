package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/blockbattle/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Player tests

func (s *StorageSuite) TestSaveAndGetPlayer() {
	player := &model.Player{
		ID:        "player-1",
		Nickname:  "Alice",
		IsGuest:   false,
		CreatedAt: time.Now(),
	}

	err := s.storage.SavePlayer(s.ctx, player)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(player.ID, retrieved.ID)
	s.Equal(player.Nickname, retrieved.Nickname)
}

func (s *StorageSuite) TestGetPlayerReturnsCopy() {
	_ = s.storage.SavePlayer(s.ctx, &model.Player{ID: "player-1", Nickname: "Alice"})

	retrieved, _ := s.storage.GetPlayer(s.ctx, "player-1")
	retrieved.Nickname = "Mallory"

	again, err := s.storage.GetPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", again.Nickname)
}

func (s *StorageSuite) TestGetPlayerNotFound() {
	_, err := s.storage.GetPlayer(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *StorageSuite) TestDeletePlayer() {
	player := &model.Player{ID: "player-1", Nickname: "Alice"}
	_ = s.storage.SavePlayer(s.ctx, player)

	err := s.storage.DeletePlayer(s.ctx, "player-1")
	s.Require().NoError(err)

	_, err = s.storage.GetPlayer(s.ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Registered player tests

func (s *StorageSuite) TestSaveAndGetRegisteredPlayer() {
	rp := &model.RegisteredPlayer{
		PlayerID:     "player-1",
		Username:     "alice",
		PasswordHash: "hash123",
		CreatedAt:    time.Now(),
	}

	err := s.storage.SaveRegisteredPlayer(s.ctx, rp)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetRegisteredPlayer(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(rp.Username, retrieved.Username)
}

func (s *StorageSuite) TestGetRegisteredPlayerByUsername() {
	rp := &model.RegisteredPlayer{
		PlayerID:     "player-1",
		Username:     "alice",
		PasswordHash: "hash123",
	}
	_ = s.storage.SaveRegisteredPlayer(s.ctx, rp)

	retrieved, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("player-1", string(retrieved.PlayerID))
}

func (s *StorageSuite) TestGetRegisteredPlayerByUsernameNotFound() {
	_, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Ranking tests

func (s *StorageSuite) TestSaveRankingKeepsBestScore() {
	_, err := s.storage.SaveRanking(s.ctx, &model.Ranking{PlayerID: "p1", Nickname: "Alice", Score: 500})
	s.Require().NoError(err)

	stored, err := s.storage.SaveRanking(s.ctx, &model.Ranking{PlayerID: "p1", Nickname: "Alice", Score: 200})
	s.Require().NoError(err)
	s.Equal(500, stored.Score)

	stored, err = s.storage.SaveRanking(s.ctx, &model.Ranking{PlayerID: "p1", Nickname: "Alice", Score: 900})
	s.Require().NoError(err)
	s.Equal(900, stored.Score)
	s.Equal(1, stored.Position)
}

func (s *StorageSuite) TestGetRanking() {
	_, _ = s.storage.SaveRanking(s.ctx, &model.Ranking{PlayerID: "p1", Nickname: "Alice", Score: 100})
	_, _ = s.storage.SaveRanking(s.ctx, &model.Ranking{PlayerID: "p2", Nickname: "Bob", Score: 300})

	r, err := s.storage.GetRanking(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("Alice", r.Nickname)
	s.Equal(100, r.Score)
	s.Equal(2, r.Position)
}

func (s *StorageSuite) TestGetRankingNotFound() {
	_, err := s.storage.GetRanking(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrRankingNotFound)
}

func (s *StorageSuite) TestTopRankings() {
	scores := map[model.PlayerID]int{"p1": 100, "p2": 400, "p3": 250, "p4": 50}
	for id, score := range scores {
		_, _ = s.storage.SaveRanking(s.ctx, &model.Ranking{PlayerID: id, Nickname: string(id), Score: score})
	}

	top, err := s.storage.TopRankings(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(top, 3)
	s.Equal(model.PlayerID("p2"), top[0].PlayerID)
	s.Equal(model.PlayerID("p3"), top[1].PlayerID)
	s.Equal(model.PlayerID("p1"), top[2].PlayerID)
	s.Equal(3, top[2].Position)
}

func (s *StorageSuite) TestTopRankingsEmpty() {
	top, err := s.storage.TopRankings(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(top)
}
