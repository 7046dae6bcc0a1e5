package messaging

import (
	"context"

	"github.com/mcoot/blockbattle/internal/model"
)

// DefaultGameFinishedSubject is where finished match results are published
const DefaultGameFinishedSubject = "blockbattle.games.finished"

// Publisher announces domain events to other systems
type Publisher interface {
	PublishGameFinished(ctx context.Context, result model.GameResult) error
	Close() error
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) PublishGameFinished(context.Context, model.GameResult) error { return nil }

func (NopPublisher) Close() error { return nil }
