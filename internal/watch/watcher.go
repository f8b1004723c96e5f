// Package watch detects new releases of a package and announces them.
//
// One invocation of Watcher.Run looks the package up in the registry, compares
// the version found there with the last version recorded in the state store,
// and when they differ sends one notification and records the new version.
// The notification is always attempted before the record is overwritten, and
// the record is overwritten even when the notification fails.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/obentoo/nugetwatch/internal/common/config"
	"github.com/obentoo/nugetwatch/internal/common/logger"
	"github.com/obentoo/nugetwatch/internal/notify"
	"github.com/obentoo/nugetwatch/internal/state"
)

// ErrStateUnavailable wraps any failure to read or write the state store
var ErrStateUnavailable = errors.New("state store unavailable")

// Outcome classifies a completed invocation.
type Outcome int

const (
	// OutcomeNotFound means the registry had no exact match
	OutcomeNotFound Outcome = iota
	// OutcomeBaseline means no version was recorded before; it is now
	OutcomeBaseline
	// OutcomeUnchanged means the recorded version equals the registry's
	OutcomeUnchanged
	// OutcomeChanged means a new version was announced and recorded
	OutcomeChanged
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not-found"
	case OutcomeBaseline:
		return "baseline"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeChanged:
		return "changed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes one invocation.
type Result struct {
	// PackageID is the watched package
	PackageID string
	// FetchedVersion is the registry's latest version; empty when not found
	FetchedVersion string
	// PreviousVersion is the recorded version before this run; empty on baseline
	PreviousVersion string
	// Outcome classifies the run
	Outcome Outcome
	// Notified is true when a notification was attempted
	Notified bool
	// NotifyErr holds the notification error, if the attempt failed
	NotifyErr error
}

// Registry resolves the latest version of a package.
type Registry interface {
	Lookup(ctx context.Context, id string) (version string, found bool, err error)
}

// Recorder observes invocations, e.g. for metrics.
type Recorder interface {
	RecordRun(outcome string, err error)
	RecordNotification(err error)
}

type noopRecorder struct{}

func (noopRecorder) RecordRun(string, error)  {}
func (noopRecorder) RecordNotification(error) {}

// Watcher runs the detection for a single package.
type Watcher struct {
	packageID         string
	notifyOnFirstSeen bool
	registry          Registry
	store             state.Store
	notifier          notify.Notifier
	recorder          Recorder
	log               *logger.Logger
}

// Option is a functional option for configuring Watcher
type Option func(*Watcher)

// WithRecorder sets the invocation recorder
func WithRecorder(r Recorder) Option {
	return func(w *Watcher) {
		if r != nil {
			w.recorder = r
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithNotifyOnFirstSeen overrides the configured first-observation policy
func WithNotifyOnFirstSeen(enabled bool) Option {
	return func(w *Watcher) {
		w.notifyOnFirstSeen = enabled
	}
}

// New creates a watcher for cfg.PackageID.
func New(cfg *config.Config, registry Registry, store state.Store, notifier notify.Notifier, opts ...Option) *Watcher {
	w := &Watcher{
		packageID:         cfg.PackageID,
		notifyOnFirstSeen: cfg.NotifyOnFirstSeen,
		registry:          registry,
		store:             store,
		notifier:          notifier,
		recorder:          noopRecorder{},
		log:               logger.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// PackageID returns the watched package id.
func (w *Watcher) PackageID() string {
	return w.packageID
}

// Compare reports whether two versions are the same, ignoring letter case.
// No semantic parsing: "1.0.0" and "1.0.0.0" differ.
func Compare(persisted, fetched string) bool {
	return strings.EqualFold(persisted, fetched)
}

// Run performs one full invocation: lookup, compare, notify, record.
func (w *Watcher) Run(ctx context.Context) (*Result, error) {
	result, err := w.run(ctx)

	outcome := ""
	if result != nil {
		outcome = result.Outcome.String()
	}
	w.recorder.RecordRun(outcome, err)
	return result, err
}

func (w *Watcher) run(ctx context.Context) (*Result, error) {
	version, found, err := w.registry.Lookup(ctx, w.packageID)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", w.packageID, err)
	}
	if !found {
		w.log.Info("No package found with id %s", w.packageID)
		return &Result{PackageID: w.packageID, Outcome: OutcomeNotFound}, nil
	}

	w.log.Info("Package found. Latest version: %s", version)
	return w.Detect(ctx, version)
}

// Detect runs the state machine for a version already fetched from the registry.
func (w *Watcher) Detect(ctx context.Context, fetched string) (*Result, error) {
	result := &Result{
		PackageID:      w.packageID,
		FetchedVersion: fetched,
	}

	exists, err := w.store.Exists(ctx, w.packageID)
	if err != nil {
		return nil, fmt.Errorf("%w: check record: %w", ErrStateUnavailable, err)
	}

	if !exists {
		w.log.Info("First time we've seen %s. Storing version %s.", w.packageID, fetched)
		if w.notifyOnFirstSeen {
			w.notify(ctx, result)
		}
		if err := w.record(ctx, fetched); err != nil {
			return nil, err
		}
		result.Outcome = OutcomeBaseline
		return result, nil
	}

	previous, err := w.store.ReadText(ctx, w.packageID)
	if err != nil {
		return nil, fmt.Errorf("%w: read record: %w", ErrStateUnavailable, err)
	}
	result.PreviousVersion = previous
	w.log.Debug("Last version we saw was %s", previous)

	if Compare(previous, fetched) {
		w.log.Info("%s is still at %s", w.packageID, previous)
		result.Outcome = OutcomeUnchanged
		return result, nil
	}

	w.log.Info("New version of %s: %s -> %s. Notifying.", w.packageID, previous, fetched)
	w.notify(ctx, result)
	if err := w.record(ctx, fetched); err != nil {
		return nil, err
	}
	result.Outcome = OutcomeChanged
	return result, nil
}

// notify attempts delivery once. Failures are logged and kept on the result.
func (w *Watcher) notify(ctx context.Context, result *Result) {
	result.Notified = true
	err := w.notifier.Notify(ctx, notify.NewReleaseMessage(w.packageID, result.FetchedVersion))
	w.recorder.RecordNotification(err)
	if err != nil {
		result.NotifyErr = err
		w.log.Warn("Notification for %s %s failed: %v", w.packageID, result.FetchedVersion, err)
	}
}

func (w *Watcher) record(ctx context.Context, version string) error {
	if err := w.store.WriteText(ctx, w.packageID, version); err != nil {
		return fmt.Errorf("%w: write record: %w", ErrStateUnavailable, err)
	}
	return nil
}
