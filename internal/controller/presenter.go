package controller

//go:generate mockgen -destination=mocks/presenter.go -package=mocks . Presenter

import (
	"context"
	"time"

	"github.com/ctchen222/tictactoe/internal/game"
)

// Presenter is the UI collaborator. The controller pushes every state change
// to Render and reports finished games to AnnounceOutcome.
type Presenter interface {
	Render(ctx context.Context, snapshot Snapshot)
	// AnnounceOutcome blocks until the players acknowledge the result.
	AnnounceOutcome(ctx context.Context, outcome game.Outcome)
}

// DelayFunc runs between a settled human move and the computer's reply.
// It should return early when ctx is done.
type DelayFunc func(ctx context.Context)

// SleepDelay pauses for d or until ctx is done.
func SleepDelay(d time.Duration) DelayFunc {
	if d <= 0 {
		return noDelay
	}
	return func(ctx context.Context) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}

func noDelay(context.Context) {}

type nopPresenter struct{}

func (nopPresenter) Render(context.Context, Snapshot)              {}
func (nopPresenter) AnnounceOutcome(context.Context, game.Outcome) {}
