package alert

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
)

type fakePlayer struct {
	calls   atomic.Int32
	running atomic.Int32
	peak    atomic.Int32
	play    func(ctx context.Context, n int32) error
}

func (p *fakePlayer) Play(ctx context.Context, _ Sound) error {
	n := p.calls.Add(1)
	cur := p.running.Add(1)
	defer p.running.Add(-1)
	for {
		peak := p.peak.Load()
		if cur <= peak || p.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	if p.play != nil {
		return p.play(ctx, n)
	}
	return nil
}

type logSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *logSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func record(id string) model.ClientNotificationRecord {
	return model.ClientNotificationRecord{
		Event:      &event.Notification{ID: id, Kind: event.ReservationCreated},
		ReceivedAt: time.Now(),
	}
}

func loud() Config {
	return Config{Sound: Sound{Path: "/sounds/cue.oga", Volume: defaultVolume}}
}

func TestTrigger_OneAttemptPerCall(t *testing.T) {
	p := &fakePlayer{}
	tr := NewTrigger(p, loud(), nil)

	for _, id := range []string{"a", "b", "c"} {
		tr.OnNewNotification(record(id))
	}
	tr.Wait()
	assert.EqualValues(t, 3, p.calls.Load())
}

func TestTrigger_FailureIsLoggedNotPropagated(t *testing.T) {
	sink := &logSink{}
	p := &fakePlayer{play: func(_ context.Context, n int32) error {
		if n == 1 {
			return errors.New("permission denied")
		}
		return nil
	}}
	tr := NewTrigger(p, loud(), newTestLogger(sink))

	tr.OnNewNotification(record("a"))
	tr.OnNewNotification(record("b"))
	tr.Wait()

	assert.EqualValues(t, 2, p.calls.Load(), "a failed cue must not stop the next one")
	assert.Contains(t, sink.String(), "[ALERT] playback failed")
	assert.Contains(t, sink.String(), model.ErrPlaybackFailure.Error())
}

func TestTrigger_RecoversPanics(t *testing.T) {
	sink := &logSink{}
	p := &fakePlayer{play: func(context.Context, int32) error { panic("driver exploded") }}
	tr := NewTrigger(p, loud(), newTestLogger(sink))

	assert.NotPanics(t, func() {
		tr.OnNewNotification(record("a"))
		tr.Wait()
	})
	assert.Contains(t, sink.String(), "driver exploded")
}

func TestTrigger_MutedAtZeroVolume(t *testing.T) {
	p := &fakePlayer{}
	cfg := loud()
	cfg.Sound.Volume = 0
	tr := NewTrigger(p, cfg, nil)

	tr.OnNewNotification(record("a"))
	tr.Wait()
	assert.Zero(t, p.calls.Load())
}

func TestTrigger_DoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	p := &fakePlayer{play: func(context.Context, int32) error { <-release; return nil }}
	tr := NewTrigger(p, loud(), nil)

	start := time.Now()
	for range 10 {
		tr.OnNewNotification(record("x"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	tr.Wait()
	assert.EqualValues(t, 10, p.calls.Load())
}

func TestTrigger_BoundsConcurrentPlayback(t *testing.T) {
	p := &fakePlayer{play: func(context.Context, int32) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	}}
	cfg := loud()
	cfg.Concurrency = 2
	tr := NewTrigger(p, cfg, nil)

	for range 8 {
		tr.OnNewNotification(record("x"))
	}
	tr.Wait()
	assert.EqualValues(t, 8, p.calls.Load())
	assert.LessOrEqual(t, p.peak.Load(), int32(2))
}

func TestTrigger_PlaybackTimeout(t *testing.T) {
	sink := &logSink{}
	p := &fakePlayer{play: func(ctx context.Context, _ int32) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	cfg := loud()
	cfg.PlaybackTimeout = 20 * time.Millisecond
	tr := NewTrigger(p, cfg, newTestLogger(sink))

	tr.OnNewNotification(record("a"))
	tr.Wait()
	assert.Contains(t, sink.String(), context.DeadlineExceeded.Error())
}

func TestTrigger_CloseDropsQueuedCues(t *testing.T) {
	p := &fakePlayer{play: func(ctx context.Context, _ int32) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	cfg := loud()
	cfg.Concurrency = 1
	tr := NewTrigger(p, cfg, nil)

	for range 5 {
		tr.OnNewNotification(record("x"))
	}
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, time.Millisecond)
	tr.Close()

	assert.EqualValues(t, 1, p.calls.Load())
	tr.OnNewNotification(record("late"))
	tr.Wait()
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestTrigger_CloseRacesNewCues(t *testing.T) {
	p := &fakePlayer{}
	tr := NewTrigger(p, loud(), nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				tr.OnNewNotification(record("x"))
			}
		}()
	}
	tr.Close()
	wg.Wait()

	before := p.calls.Load()
	tr.OnNewNotification(record("late"))
	tr.Wait()
	assert.Equal(t, before, p.calls.Load(), "no cue may start after Close")
}

func TestCommandPlayer_Args(t *testing.T) {
	p, err := NewCommandPlayer("")
	require.NoError(t, err)
	assert.Equal(t, []string{"paplay", "--volume=32768", "/s/cue.oga"}, p.Args(Sound{Path: "/s/cue.oga", Volume: 0.5}))

	p, err = NewCommandPlayer("mpv --volume={volume_pct} --really-quiet {path}")
	require.NoError(t, err)
	assert.Equal(t, []string{"mpv", "--volume=80", "--really-quiet", "/s/cue.oga"}, p.Args(Sound{Path: "/s/cue.oga", Volume: 0.8}))

	_, err = NewCommandPlayer("aplay")
	assert.Error(t, err)
}

func TestCommandPlayer_MissingAsset(t *testing.T) {
	p, err := NewCommandPlayer("")
	require.NoError(t, err)

	err = p.Play(context.Background(), Sound{Path: filepath.Join(t.TempDir(), "nope.oga"), Volume: 0.5})
	assert.ErrorIs(t, err, ErrAssetMissing)

	err = p.Play(context.Background(), Sound{Volume: 0.5})
	assert.ErrorIs(t, err, ErrAssetMissing)
}

func TestBellPlayer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewBellPlayer(&buf).Play(context.Background(), Sound{}))
	assert.Equal(t, "\a", buf.String())
}

func TestNewPlayer(t *testing.T) {
	p, err := NewPlayer(config.ClientConfig{Player: PlayerNone})
	require.NoError(t, err)
	assert.IsType(t, NopPlayer{}, p)

	p, err = NewPlayer(config.ClientConfig{Player: PlayerBell})
	require.NoError(t, err)
	assert.IsType(t, &BellPlayer{}, p)

	p, err = NewPlayer(config.ClientConfig{Player: PlayerCommand})
	require.NoError(t, err)
	assert.IsType(t, &CommandPlayer{}, p)

	_, err = NewPlayer(config.ClientConfig{Player: "gramophone"})
	assert.Error(t, err)
}
