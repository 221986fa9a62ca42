package reprocess

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"arena/internal/logging"
)

// ErrRunInProgress is returned when a run for the same match is active.
var ErrRunInProgress = errors.New("reprocess already running for match")

type inflight struct {
	mu      sync.Mutex
	active  map[string]struct{}
	lockDir string
	logger  *slog.Logger
}

func newInflight(lockDir string, logger *slog.Logger) *inflight {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &inflight{
		active:  make(map[string]struct{}),
		lockDir: strings.TrimSpace(lockDir),
		logger:  logger,
	}
}

// acquire claims matchID for this process and, when a lock directory is set,
// for every process sharing it. The returned release must be called once.
func (g *inflight) acquire(matchID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[matchID]; busy {
		return nil, fmt.Errorf("%w %s", ErrRunInProgress, matchID)
	}

	var lock *flock.Flock
	if g.lockDir != "" {
		if err := os.MkdirAll(g.lockDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure lock directory: %w", err)
		}
		lock = flock.New(lockPath(g.lockDir, matchID))
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w %s (held by another process)", ErrRunInProgress, matchID)
		}
	}
	g.active[matchID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			if lock != nil {
				if err := lock.Unlock(); err != nil {
					g.logger.Debug("release run lock failed",
						logging.String("match_id", matchID),
						logging.String("lock_path", lock.Path()),
						logging.Error(err),
					)
				}
			}
			g.mu.Lock()
			delete(g.active, matchID)
			g.mu.Unlock()
		})
	}, nil
}

// lockPath names the lock file after a readable form of matchID plus a short
// hash of the raw id, so ids that sanitize alike still get distinct files.
func lockPath(dir, matchID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, matchID)
	sum := sha256.Sum256([]byte(matchID))
	return filepath.Join(dir, "reprocess-"+safe+"-"+hex.EncodeToString(sum[:4])+".lock")
}
