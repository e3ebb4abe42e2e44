package cli

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/framework-cg/pgload/internal/config"
	"github.com/framework-cg/pgload/internal/db"
	"github.com/framework-cg/pgload/internal/runlog"
	"github.com/framework-cg/pgload/pkg/pgload"
)

// session bundles what a database command needs: logger, project config,
// resolved connection and the pool provider. Close releases all of it.
type session struct {
	logger   pgload.Logger
	project  *config.ProjectConfig
	conn     *pgload.ConnectionConfig
	provider *db.PoolProvider

	closeLog func()
}

func openSession(stderr io.Writer, flags connectionFlags) (*session, error) {
	project, err := loadProjectConfig()
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := newLogger(stderr)
	if err != nil {
		return nil, err
	}

	conn, err := resolveConnectionFromFlags(flags, project)
	if err != nil {
		closeLog()
		return nil, err
	}
	logConnectionVerbose(logger, conn)

	return &session{
		logger:   logger,
		project:  project,
		conn:     conn,
		provider: db.NewPoolProvider(conn, logger),
		closeLog: closeLog,
	}, nil
}

// pool returns the pool for the configured database, connecting on first use.
func (s *session) pool(ctx context.Context) (*pgxpool.Pool, error) {
	return s.provider.Pool(ctx, "")
}

// timeout returns the flag value when set on the command line, else the
// project timeout, else def.
func (s *session) timeout(flagChanged bool, flagValue, def time.Duration) time.Duration {
	if flagChanged {
		return flagValue
	}
	return s.project.TimeoutOr(def)
}

// tracker builds a run tracker over the session pool using the tracking section.
func (s *session) tracker(ctx context.Context) (*runlog.Tracker, error) {
	pool, err := s.pool(ctx)
	if err != nil {
		return nil, err
	}

	tc := s.project.Tracking
	opts := []runlog.Option{
		runlog.WithUser(tc.User),
		runlog.WithMaxMessageChars(tc.MaxMessageChars),
	}
	if len(tc.PersistLevels) > 0 {
		levels := make([]runlog.Level, len(tc.PersistLevels))
		for i, l := range tc.PersistLevels {
			levels[i] = runlog.ParseLevel(strings.TrimSpace(l))
		}
		opts = append(opts, runlog.WithPersistLevels(levels...))
	}
	return runlog.NewTracker(ctx, pool, s.logger, opts...), nil
}

func (s *session) Close() {
	if err := s.provider.Close(); err != nil {
		s.logger.Warn("Failed to close connections: %v", err)
	}
	s.closeLog()
}
