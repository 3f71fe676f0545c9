// Package daemon assembles and runs a sync session and serves its status.
package daemon

import (
	"context"
	"fmt"
	"time"

	"drivesync/internal/auth"
	"drivesync/internal/config"
	"drivesync/internal/engine"
	"drivesync/internal/local"
	"drivesync/internal/logger"
	"drivesync/internal/pathkey"
	"drivesync/internal/pipeline"
	"drivesync/internal/remote"
	"drivesync/internal/remote/dropbox"
	"drivesync/internal/remote/gdrive"
	"drivesync/internal/remote/localdir"
	"drivesync/internal/repository"
	"drivesync/internal/watcher"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type Session struct {
	cfg      *config.Config
	root     string
	fs       afero.Fs
	state    *SessionState
	histRepo *repository.HistoryRepository
}

// NewSession prepares a session for root. histRepo may be nil to run without
// history.
func NewSession(cfg *config.Config, root string, histRepo *repository.HistoryRepository) *Session {
	return &Session{
		cfg:      cfg,
		root:     root,
		fs:       afero.NewOsFs(),
		state:    NewSessionState(root, describeRemote(cfg.Remote)),
		histRepo: histRepo,
	}
}

func (s *Session) State() *SessionState {
	return s.state
}

// Run creates root when missing, connects the remote and syncs until ctx is
// cancelled or a client posts /stop.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	norm, err := pathkey.NewNormalizer(s.root)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(norm.Root(), 0755); err != nil {
		return fmt.Errorf("failed to create root dir: %w", err)
	}

	filter, err := pipeline.NewFilter(s.cfg.IgnoreList)
	if err != nil {
		return err
	}

	conn, err := newConnector(ctx, s.cfg.Remote, remote.NewContent(s.fs, norm), s.fs)
	if err != nil {
		return err
	}

	src, err := watcher.New(s.cfg.Watcher.Backend)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	if s.cfg.DaemonPort > 0 {
		srv := NewServer(s.state, s.histRepo, s.cfg.DaemonPort)
		srv.Start()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			_ = srv.Stop(shutdownCtx)
		}()

		go func() {
			select {
			case <-srv.StopCh():
				logger.Log.Info("stop requested")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	tree := local.NewTree(s.fs, norm)

	var eng *engine.Engine
	trackWatches := func() { s.state.SetWatches(eng.Watches().Count()) }

	observers := []engine.Observer{
		s.state,
		engine.ObserverFunc(func(engine.Result) { trackWatches() }),
	}
	if s.histRepo != nil {
		observers = append(observers, s.histRepo)
	}

	eng = engine.New(engine.Config{
		Normalizer:  norm,
		Remote:      conn,
		Local:       tree,
		Writer:      tree,
		Source:      src,
		FS:          s.fs,
		Filter:      filter,
		PollTimeout: s.cfg.Watcher.PollTimeout,
		Observers:   observers,
		OnPhase: func(phase engine.Phase) {
			s.state.SetPhase(phase)
			trackWatches()
		},
	})

	logger.Log.Info("session started",
		zap.String("root", norm.Root()),
		zap.String("remote", describeRemote(s.cfg.Remote)),
		zap.String("watcher", s.cfg.Watcher.Backend))

	err = eng.Run(ctx)

	logger.Log.Info("session stopped",
		zap.String("root", norm.Root()))

	return err
}

func newConnector(ctx context.Context, cfg config.RemoteConfig, content *remote.Content, fs afero.Fs) (engine.RemoteConnector, error) {
	switch cfg.Backend {
	case "gdrive":
		svc, err := auth.GDrive.NewService(ctx)
		if err != nil {
			return nil, err
		}

		conn, err := gdrive.New(ctx, svc, content, cfg.Folder)
		if err != nil {
			return nil, err
		}
		return conn, nil

	case "dropbox":
		client, err := auth.Dropbox.NewClient(ctx)
		if err != nil {
			return nil, err
		}

		conn, err := dropbox.New(ctx, client, content, cfg.Folder)
		if err != nil {
			return nil, err
		}
		return conn, nil

	case "local":
		conn, err := localdir.New(fs, content, cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		return conn, nil

	default:
		return nil, fmt.Errorf("unsupported remote backend: %s", cfg.Backend)
	}
}

func describeRemote(cfg config.RemoteConfig) string {
	if cfg.Backend == "local" {
		return "local:" + cfg.LocalDir
	}

	return cfg.Backend + ":" + cfg.Folder
}
