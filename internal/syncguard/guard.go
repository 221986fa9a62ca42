// Package syncguard makes sure a match record exists in the durable store
// before any events are written against it.
//
// The guard tries the processing service first and falls back to a direct
// write through the privileged sync function. Either path is only trusted once
// a re-read confirms the record; the re-read uses bounded backoff rather than
// a single fixed delay. EnsureSynced never returns an error: every failure is
// logged and reported as false.
package syncguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"arena/internal/confirm"
	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/services"
	"arena/internal/services/remote"
	"arena/internal/services/syncfn"
)

// Primary is the processing service path.
type Primary interface {
	EnsureMatch(ctx context.Context, matchID string) (remote.EnsureResult, error)
}

// Fallback is the privileged direct-write path.
type Fallback interface {
	Configured() bool
	Sync(ctx context.Context, payload syncfn.Payload) (syncfn.Result, error)
}

// Reader reads the match back from the durable store.
type Reader interface {
	GetMatch(ctx context.Context, id string) (*matchstore.Match, error)
}

// Guard coordinates the primary and fallback sync paths.
type Guard struct {
	primary  Primary
	fallback Fallback
	reader   Reader
	policy   confirm.Policy
	logger   *slog.Logger
}

// New constructs a guard. primary and fallback may be nil to disable a path;
// reader is required.
func New(primary Primary, fallback Fallback, reader Reader, policy confirm.Policy, logger *slog.Logger) *Guard {
	return &Guard{
		primary:  primary,
		fallback: fallback,
		reader:   reader,
		policy:   policy,
		logger:   logging.NewComponentLogger(logger, "syncguard"),
	}
}

// EnsureSynced reports whether the match is confirmed present in the durable
// store. snapshot supplies the fallback payload.
func (g *Guard) EnsureSynced(ctx context.Context, matchID string, snapshot matchstore.Match) (ok bool) {
	ctx = services.WithMatchID(ctx, matchID)
	logger := logging.WithContext(ctx, g.logger)
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "sync guard panicked", "sync_guard_panic",
				logging.String("panic", fmt.Sprint(r)),
			)
			ok = false
		}
	}()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" || g.reader == nil {
		logging.WarnWithContext(logger, "sync guard misconfigured; treating match as unsynced", "sync_guard_invalid",
			logging.String(logging.FieldErrorHint, "pass a match id and a store reader"),
			logging.String(logging.FieldImpact, "reprocess run aborts"),
		)
		return false
	}

	if g.ensurePrimary(ctx, logger, matchID) {
		return true
	}
	return g.ensureFallback(ctx, logger, matchID, snapshot)
}

func (g *Guard) ensurePrimary(ctx context.Context, logger *slog.Logger, matchID string) bool {
	if g.primary == nil {
		return false
	}
	if _, err := g.primary.EnsureMatch(ctx, matchID); err != nil {
		details := services.Details(err)
		logging.WarnWithContext(logger, "primary sync failed; trying fallback", "sync_primary_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.String(logging.FieldErrorHint, "check the processing service url and logs"),
			logging.String(logging.FieldImpact, "match sync falls back to direct write"),
		)
		return false
	}
	err := confirm.Until(ctx, g.policy, func(ctx context.Context) (bool, error) {
		m, err := g.reader.GetMatch(ctx, matchID)
		return m != nil, err
	})
	if err != nil {
		logging.WarnWithContext(logger, "primary sync not visible in store; trying fallback", "sync_primary_unconfirmed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "store replication may be lagging"),
			logging.String(logging.FieldImpact, "match sync falls back to direct write"),
		)
		return false
	}
	logger.Info("match synced", logging.Args(logging.DecisionAttrs("sync_path", "primary", "service confirmed and record visible")...)...)
	return true
}

func (g *Guard) ensureFallback(ctx context.Context, logger *slog.Logger, matchID string, snapshot matchstore.Match) bool {
	if g.fallback == nil || !g.fallback.Configured() {
		logging.ErrorWithContext(logger, "match sync failed and no fallback is configured", "sync_failed",
			logging.String(logging.FieldErrorHint, "set sync.function_url and sync.service_key"),
		)
		return false
	}
	payload := syncfn.NewPayload(snapshot)
	if payload.ID == "" {
		payload.ID = matchID
	}
	if payload.ID != matchID {
		logging.ErrorWithContext(logger, "match snapshot id does not match run", "sync_failed",
			logging.String("snapshot_id", payload.ID),
			logging.String(logging.FieldErrorHint, "reload the match before reprocessing"),
		)
		return false
	}
	if _, err := g.fallback.Sync(ctx, payload); err != nil {
		logging.ErrorWithContext(logger, "fallback sync failed", "sync_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check sync function logs and service key"),
		)
		return false
	}

	err := confirm.Until(ctx, g.policy, func(ctx context.Context) (bool, error) {
		m, err := g.reader.GetMatch(ctx, matchID)
		if err != nil || m == nil {
			return false, err
		}
		if m.HomeTeam.ID != payload.HomeTeam.ID || m.AwayTeam.ID != payload.AwayTeam.ID {
			return false, errTeamMismatch
		}
		return true, nil
	})
	if err != nil {
		logging.ErrorWithContext(logger, "fallback sync not confirmed", "sync_unconfirmed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the record and its team ids in the store"),
		)
		return false
	}
	logger.Info("match synced", logging.Args(logging.DecisionAttrs("sync_path", "fallback", "direct write confirmed with team ids")...)...)
	return true
}

var errTeamMismatch = errors.New("stored team ids differ from payload")
