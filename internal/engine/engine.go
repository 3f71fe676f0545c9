package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"drivesync/internal/logger"
	"drivesync/internal/model"
	"drivesync/internal/pathkey"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const DefaultPollTimeout = time.Second

// Phase is the stage Run is in.
type Phase string

const (
	PhaseReconciling Phase = "RECONCILING"
	PhaseWatching    Phase = "WATCHING"
	PhaseStopped     Phase = "STOPPED"
)

// Filter excludes keys from synchronization in both directions.
type Filter interface {
	Ignored(key pathkey.Key) bool
}

type Config struct {
	Normalizer  *pathkey.Normalizer
	Remote      RemoteConnector
	Local       LocalEnumerator
	Writer      LocalWriter
	Source      NotificationSource
	FS          afero.Fs
	Filter      Filter
	Mask        model.EventMask
	PollTimeout time.Duration
	Observers   []Observer
	// OnPhase, when set, is called as Run moves between phases.
	OnPhase func(phase Phase)
}

// Engine runs startup reconciliation followed by the live event loop.
type Engine struct {
	norm        *pathkey.Normalizer
	remote      RemoteConnector
	local       LocalEnumerator
	writer      LocalWriter
	source      NotificationSource
	filter      Filter
	pollTimeout time.Duration
	observers   []Observer
	onPhase     func(phase Phase)

	classifier *Classifier
	dispatcher *Dispatcher
	watches    *WatchManager
}

func New(cfg Config) *Engine {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.Mask == 0 {
		cfg.Mask = model.MaskAll
	}
	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}

	return &Engine{
		norm:        cfg.Normalizer,
		remote:      cfg.Remote,
		local:       cfg.Local,
		writer:      cfg.Writer,
		source:      cfg.Source,
		filter:      cfg.Filter,
		pollTimeout: cfg.PollTimeout,
		observers:   cfg.Observers,
		onPhase:     cfg.OnPhase,
		classifier:  NewClassifier(cfg.Normalizer),
		dispatcher:  NewDispatcher(cfg.Remote),
		watches:     NewWatchManager(cfg.FS, cfg.Source, cfg.Normalizer, cfg.Mask),
	}
}

func (e *Engine) Watches() *WatchManager {
	return e.watches
}

// Run reconciles, installs the root subscription and then processes events
// until ctx is cancelled. Only enumeration failures, a failed root
// subscription and a closed source end it early.
func (e *Engine) Run(ctx context.Context) error {
	defer e.setPhase(PhaseStopped)

	e.setPhase(PhaseReconciling)
	plan, err := e.Plan(ctx)
	if err != nil {
		return err
	}

	if err := e.ApplyPlan(ctx, plan); err != nil {
		logger.Log.Warn("reconciliation finished with failures",
			zap.Int("failed", len(multierr.Errors(err))),
			zap.Error(err))
	}

	if err := e.watches.Install(); err != nil {
		return err
	}

	e.setPhase(PhaseWatching)
	return e.Loop(ctx)
}

func (e *Engine) setPhase(phase Phase) {
	if e.onPhase != nil {
		e.onPhase(phase)
	}
}

// Plan lists both sides and diffs them.
func (e *Engine) Plan(ctx context.Context) (Plan, error) {
	localKeys, err := e.local.Paths(ctx)
	if err != nil {
		return Plan{}, &EnumerationError{Side: "local", Err: err}
	}

	remoteKeys, err := e.remote.Paths(ctx)
	if err != nil {
		return Plan{}, &EnumerationError{Side: "remote", Err: err}
	}

	if e.filter != nil {
		localKeys = localKeys.Without(e.filter.Ignored)
		remoteKeys = remoteKeys.Without(e.filter.Ignored)
	}

	plan := Reconcile(localKeys, remoteKeys)
	logger.Log.Info("reconciliation planned",
		zap.Int("local", localKeys.Len()),
		zap.Int("remote", remoteKeys.Len()),
		zap.Int("uploads", len(plan.Uploads)),
		zap.Int("downloads", len(plan.Downloads)))

	return plan, nil
}

// ApplyPlan applies every action of the plan, uploads first. A failed action
// never stops the ones after it; all failures are returned combined.
func (e *Engine) ApplyPlan(ctx context.Context, plan Plan) error {
	var errs error

	for _, action := range plan.Uploads {
		err := e.dispatcher.Dispatch(ctx, action)
		e.report(action, err)
		errs = multierr.Append(errs, err)
	}

	for _, action := range plan.Downloads {
		err := e.download(ctx, action)
		e.report(action, err)
		errs = multierr.Append(errs, err)
	}

	return errs
}

func (e *Engine) download(ctx context.Context, action Action) error {
	switch action.Kind {
	case KindDownloadDir:
		if err := e.writer.CreateDir(action.Key); err != nil {
			return fmt.Errorf("failed to create %s: %w", action.Key, err)
		}
		return nil

	case KindDownloadFile:
		rc, err := e.remote.Download(ctx, action.Key)
		if err != nil {
			return &RemoteError{Op: opName(action.Kind), Key: action.Key, Err: err}
		}

		defer func(rc io.ReadCloser) {
			_ = rc.Close()
		}(rc)

		if err := e.writer.WriteFile(action.Key, rc); err != nil {
			return fmt.Errorf("failed to write %s: %w", action.Key, err)
		}
		return nil

	default:
		return fmt.Errorf("%s is not a download", action)
	}
}

// Loop pulls events until ctx is cancelled. Cancellation is checked once per
// wait timeout or processed event.
func (e *Engine) Loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			logger.Log.Info("sync loop stopping")
			return nil
		}

		ev, ok, err := e.source.Next(e.pollTimeout)
		if err != nil {
			if errors.Is(err, ErrSourceClosed) {
				return err
			}

			logger.Log.Error("watcher error",
				zap.Error(err))
			continue
		}

		if !ok {
			continue
		}

		e.HandleEvent(ctx, ev)
	}
}

// HandleEvent classifies and applies a single event. The dispatch runs to
// completion even if ctx is cancelled meanwhile.
func (e *Engine) HandleEvent(ctx context.Context, ev model.RawEvent) Decision {
	if e.ignored(ev) {
		logger.Log.Debug("ignored",
			zap.String("kind", string(ev.Kind)),
			zap.String("path", ev.Path))
		return Decision{Outcome: OutcomeDropped, Reason: "ignored"}
	}

	d := e.classifier.Classify(ev)

	switch d.Outcome {
	case OutcomeDropped:
		logger.Log.Debug("dropped",
			zap.String("kind", string(ev.Kind)),
			zap.String("path", ev.Path),
			zap.String("reason", d.Reason))

	case OutcomeRenameDetected:
		logger.Log.Warn("rename not synced",
			zap.Error(&AmbiguousRenameError{From: d.Rename.From, To: d.Rename.To}))

	default:
		err := e.dispatcher.Dispatch(context.WithoutCancel(ctx), d.Action)
		e.report(d.Action, err)
	}

	if err := e.watches.Apply(ev, d); err != nil {
		logger.Log.Warn("watch update failed",
			zap.Error(err))
	}

	return d
}

func (e *Engine) ignored(ev model.RawEvent) bool {
	if e.filter == nil {
		return false
	}

	key, err := e.norm.ToKey(ev.Path, ev.IsDir)
	if err != nil {
		return false
	}

	return e.filter.Ignored(key)
}

func (e *Engine) report(action Action, err error) {
	if err != nil {
		logger.Log.Error("sync failed",
			zap.String("action", string(action.Kind)),
			zap.String("key", action.Key.String()),
			zap.Error(err))
	} else {
		logger.Log.Info("synced",
			zap.String("action", string(action.Kind)),
			zap.String("key", action.Key.String()))
	}

	result := Result{Action: action, Err: err, SyncedAt: time.Now()}
	for _, o := range e.observers {
		o.Observe(result)
	}
}
