package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/webitel/admin-notify-service/config"
)

// ErrAssetMissing reports a sound file that does not exist.
var ErrAssetMissing = errors.New("sound asset missing")

const (
	PlayerCommand = "command"
	PlayerBell    = "bell"
	PlayerNone    = "none"

	// DefaultCommand plays through PulseAudio; paplay volume is linear in [0, 65536].
	DefaultCommand = "paplay --volume={volume_pa} {path}"
)

// NewPlayer builds the Player selected by cfg.Player.
func NewPlayer(cfg config.ClientConfig) (Player, error) {
	switch cfg.Player {
	case PlayerCommand, "":
		return NewCommandPlayer(cfg.PlayerCommand)
	case PlayerBell:
		return NewBellPlayer(os.Stderr), nil
	case PlayerNone:
		return NopPlayer{}, nil
	}
	return nil, fmt.Errorf("player %q is not supported", cfg.Player)
}

// CommandPlayer runs an external program once per cue. The template accepts
// the placeholders {path}, {volume} (0..1), {volume_pct} (0..100) and
// {volume_pa} (0..65536).
type CommandPlayer struct {
	argv []string
}

func NewCommandPlayer(template string) (*CommandPlayer, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultCommand
	}
	if !strings.Contains(template, "{path}") {
		return nil, fmt.Errorf("player command %q does not reference {path}", template)
	}
	return &CommandPlayer{argv: strings.Fields(template)}, nil
}

func (p *CommandPlayer) Args(sound Sound) []string {
	r := strings.NewReplacer(
		"{path}", sound.Path,
		"{volume}", strconv.FormatFloat(sound.Volume, 'f', 2, 64),
		"{volume_pct}", strconv.Itoa(int(sound.Volume*100+0.5)),
		"{volume_pa}", strconv.Itoa(int(sound.Volume*65536+0.5)),
	)
	out := make([]string, len(p.argv))
	for i, a := range p.argv {
		out[i] = r.Replace(a)
	}
	return out
}

func (p *CommandPlayer) Play(ctx context.Context, sound Sound) error {
	if sound.Path == "" {
		return fmt.Errorf("%w: no sound path configured", ErrAssetMissing)
	}
	if _, err := os.Stat(sound.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrAssetMissing, sound.Path)
		}
		return err
	}

	args := p.Args(sound)
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

// BellPlayer rings the terminal bell; volume is not adjustable.
type BellPlayer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBellPlayer(w io.Writer) *BellPlayer {
	return &BellPlayer{w: w}
}

func (p *BellPlayer) Play(context.Context, Sound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, "\a")
	return err
}

type NopPlayer struct{}

func (NopPlayer) Play(context.Context, Sound) error { return nil }
