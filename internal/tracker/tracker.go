package tracker

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/mchen/pagewatch/pkg/notify"
	"github.com/mchen/pagewatch/pkg/scraper"
	"github.com/mchen/pagewatch/pkg/textdiff"
)

// ChangeEvent is the per-target outcome of one scan that crossed its
// threshold, carried into digest composition and the API response.
type ChangeEvent struct {
	Target   Target
	Distance int
	OldLen   int
	NewLen   int
	Title    string
}

// Scanner runs the check flow over all enabled targets:
// fetch -> extract -> threshold decision -> snapshot rotation -> notify.
type Scanner struct {
	store      *Store
	fetcher    scraper.Fetcher
	dispatcher *notify.Dispatcher
	channels   []notify.Channel
	logger     *slog.Logger
}

// NewScanner creates a scanner. dispatcher may be nil when notifications
// are not configured.
func NewScanner(store *Store, fetcher scraper.Fetcher, dispatcher *notify.Dispatcher, channels []notify.Channel) *Scanner {
	return &Scanner{
		store:      store,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		channels:   channels,
		logger:     slog.Default(),
	}
}

// ScanAll checks every enabled target once and dispatches a single digest
// when anything changed. Per-target failures are logged and skipped so one
// dead page cannot stall the round.
func (sc *Scanner) ScanAll(ctx context.Context) ([]ChangeEvent, error) {
	targets, err := sc.store.ListEnabledTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	sc.logger.Info("starting scan", "targets", len(targets))

	var events []ChangeEvent
	for _, target := range targets {
		if !target.Due(time.Now()) {
			sc.logger.Debug("not due yet", "target", target.Name)
			continue
		}
		event, err := sc.CheckTarget(ctx, target)
		if err != nil {
			sc.logger.Error("check target failed", "target", target.URL, "error", err)
			if serr := sc.store.SetLastError(ctx, target.ID, err.Error()); serr != nil {
				sc.logger.Error("record scan failure", "target", target.URL, "error", serr)
			}
			continue
		}
		if target.LastError != "" {
			if serr := sc.store.SetLastError(ctx, target.ID, ""); serr != nil {
				sc.logger.Error("clear scan failure", "target", target.URL, "error", serr)
			}
		}
		if event != nil {
			events = append(events, *event)
		}
	}

	sc.logger.Info("scan complete", "targets_checked", len(targets), "changes_detected", len(events))

	if len(events) > 0 && sc.dispatcher != nil && len(sc.channels) > 0 {
		msg := ComposeDigest(events)
		if err := sc.dispatcher.Dispatch(ctx, sc.channels, msg); err != nil {
			sc.logger.Error("notify failed", "error", err)
		}
	}
	return events, nil
}

// CheckTarget fetches one target and decides whether its visible text
// changed enough to count. Returns nil when nothing notification-worthy
// happened (first capture, identical content, below threshold).
func (sc *Scanner) CheckTarget(ctx context.Context, target Target) (*ChangeEvent, error) {
	result, err := sc.fetcher.Fetch(ctx, target.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target.URL, err)
	}

	newText := result.CleanText
	checksum := fmt.Sprintf("%x", sha256.Sum256([]byte(newText)))

	if err := sc.store.UpdateLastChecked(ctx, target.ID); err != nil {
		// Non-fatal for this round, but a persistent failure here makes the
		// per-target interval misfire, so it must leave a trace.
		sc.logger.Warn("update last check time failed", "target", target.URL, "error", err)
	}

	current, err := sc.store.GetSnapshot(ctx, target.ID, SnapCurrent)
	if err != nil {
		return nil, err
	}

	// First capture: nothing to compare against yet. This is the one place
	// that distinguishes "no history" from "no change"; CountChanges alone
	// cannot (it reports 0 for an empty side).
	if current == nil {
		sc.logger.Info("first capture", "target", target.Name, "url", target.URL, "size", len(result.RawHTML))
		return nil, sc.store.SaveCurrentSnapshot(ctx, target.ID, result.RawHTML, len(newText), checksum)
	}

	// Checksums are over extracted text, so equality here means the visible
	// text is byte-identical and the metric can be skipped.
	if checksum == current.Checksum {
		sc.logger.Debug("no change", "target", target.Name)
		return nil, nil
	}

	oldText := textdiff.ExtractText(current.HTML)

	changed := false
	distance := 0
	if target.Threshold <= 1 {
		// Low thresholds treat any text inequality as a change; the metric's
		// magnitude never enters the decision.
		changed = oldText != newText
	} else {
		distance = textdiff.CountChanges(oldText, newText)
		changed = distance >= target.Threshold
	}

	if !changed {
		// Below threshold: the drift still becomes the new baseline, but the
		// pre-change snapshot stays put.
		sc.logger.Info("below threshold", "target", target.Name, "distance", distance, "threshold", target.Threshold)
		return nil, sc.store.SaveCurrentSnapshot(ctx, target.ID, result.RawHTML, len(newText), checksum)
	}

	if err := sc.store.RotateSnapshots(ctx, target.ID, result.RawHTML, len(newText), checksum); err != nil {
		return nil, err
	}
	if _, err := sc.store.SaveChange(ctx, Change{
		TargetID: target.ID,
		Distance: distance,
		OldLen:   len(oldText),
		NewLen:   len(newText),
	}); err != nil {
		return nil, err
	}

	sc.logger.Info("change detected",
		"target", target.Name,
		"url", target.URL,
		"distance", distance,
		"threshold", target.Threshold)

	return &ChangeEvent{
		Target:   target,
		Distance: distance,
		OldLen:   len(oldText),
		NewLen:   len(newText),
		Title:    result.Title,
	}, nil
}
