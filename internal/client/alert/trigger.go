// Package alert plays one audio cue per genuinely new notification.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/webitel/admin-notify-service/internal/domain/model"
	"golang.org/x/sync/semaphore"
)

const (
	defaultVolume          = 0.5
	defaultPlaybackTimeout = 5 * time.Second
	defaultConcurrency     = 2
)

// Player renders a Sound. Implementations must honour ctx.
type Player interface {
	Play(ctx context.Context, sound Sound) error
}

type Sound struct {
	Path   string
	Volume float64 // 0..1
}

type Config struct {
	Sound           Sound
	PlaybackTimeout time.Duration
	// Concurrency bounds simultaneous playbacks; further cues queue.
	Concurrency int64
}

// Trigger is the side effect of the inbox "new" branch. It never blocks the
// caller and never propagates a playback failure.
type Trigger struct {
	player  Player
	sound   Sound
	timeout time.Duration
	sem     *semaphore.Weighted
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex // guards closed and wg.Add against Close
	closed bool
}

func NewTrigger(player Player, cfg Config, logger *slog.Logger) *Trigger {
	if cfg.PlaybackTimeout <= 0 {
		cfg.PlaybackTimeout = defaultPlaybackTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	if player == nil {
		player = NopPlayer{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Trigger{
		player:  player,
		sound:   cfg.Sound,
		timeout: cfg.PlaybackTimeout,
		sem:     semaphore.NewWeighted(cfg.Concurrency),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnNewNotification schedules exactly one playback attempt for rec.
func (t *Trigger) OnNewNotification(rec model.ClientNotificationRecord) {
	id := ""
	if rec.Event != nil {
		id = rec.Event.ID
	}
	if t.sound.Volume <= 0 {
		t.logger.Debug("[ALERT] muted, cue skipped", slog.String("id", id))
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()

		// [QUEUE] cues wait their turn instead of piling up players
		if err := t.sem.Acquire(t.ctx, 1); err != nil {
			return
		}
		defer t.sem.Release(1)

		if err := t.play(); err != nil {
			t.logger.Warn("[ALERT] playback failed",
				slog.String("id", id),
				slog.String("sound", t.sound.Path),
				slog.Any("err", err),
			)
		}
	}()
}

func (t *Trigger) play() (err error) {
	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", model.ErrPlaybackFailure, r)
		}
	}()

	if err := t.player.Play(ctx, t.sound); err != nil {
		return fmt.Errorf("%w: %w", model.ErrPlaybackFailure, err)
	}
	return nil
}

// Wait blocks until every scheduled attempt has finished.
func (t *Trigger) Wait() { t.wg.Wait() }

// Close abandons queued cues, interrupts running ones and waits for them.
func (t *Trigger) Close() {
	t.mu.Lock()
	t.closed = true
	t.cancel()
	t.mu.Unlock()

	t.wg.Wait()
}
