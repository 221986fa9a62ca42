package main

import (
	"context"
	"errors"
	"log/slog"

	"arena/internal/logging"
	"arena/internal/matchstore"
	"arena/internal/services/remote"
)

// hostedStore routes the final match write and cache invalidation to the
// processing service's record, the one the sync guard confirms. Reads stay
// on the local store, which also receives a mirror of every write.
type hostedStore struct {
	*matchstore.Store
	remote *remote.Client
	logger *slog.Logger
}

func (s hostedStore) UpdateMatch(ctx context.Context, id string, update matchstore.MatchUpdate) error {
	if err := s.remote.UpdateMatch(ctx, id, update); err != nil {
		return err
	}
	if err := s.Store.UpdateMatch(ctx, id, update); err != nil {
		logging.WarnWithContext(s.logger, "local match copy not updated", "match_mirror_failed",
			logging.String("match_id", id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-import the match to refresh the local copy"),
			logging.String(logging.FieldImpact, "match show may report the old score"),
		)
	}
	return nil
}

func (s hostedStore) InvalidateMatch(ctx context.Context, id string) error {
	return errors.Join(s.remote.InvalidateMatch(ctx, id), s.Store.InvalidateMatch(ctx, id))
}
