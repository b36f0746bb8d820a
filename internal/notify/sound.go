package notify

import (
	"context"
	"fmt"
	"io"
	"time"
)

type Tone struct {
	Frequency float64
	Duration  time.Duration
	Gain      float64
}

// ToneGap separates consecutive tones.
const ToneGap = 20 * time.Millisecond

// Tones returns the cue for a sound kind; SoundNone has none.
func Tones(kind Sound) []Tone {
	switch kind {
	case SoundSuccess:
		return []Tone{
			{Frequency: 880, Duration: 80 * time.Millisecond, Gain: 0.06},
			{Frequency: 1175, Duration: 120 * time.Millisecond, Gain: 0.06},
		}
	case SoundWarning:
		return []Tone{
			{Frequency: 660, Duration: 90 * time.Millisecond, Gain: 0.06},
			{Frequency: 440, Duration: 120 * time.Millisecond, Gain: 0.06},
		}
	case SoundError:
		return []Tone{
			{Frequency: 220, Duration: 160 * time.Millisecond, Gain: 0.08},
		}
	}
	return nil
}

// TonePlayer renders a tone sequence on whatever output the host has.
type TonePlayer interface {
	Play(ctx context.Context, tones []Tone) error
}

type NopPlayer struct{}

func (NopPlayer) Play(context.Context, []Tone) error { return nil }

// BellPlayer approximates tones with the terminal bell, one ring per tone.
type BellPlayer struct {
	W io.Writer
}

func (p BellPlayer) Play(ctx context.Context, tones []Tone) error {
	for _, t := range tones {
		if _, err := io.WriteString(p.W, "\a"); err != nil {
			return fmt.Errorf("ring bell: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.Duration + ToneGap):
		}
	}
	return nil
}

const playTimeout = 1500 * time.Millisecond

func (s *Service) playAsync(kind Sound) {
	tones := Tones(kind)
	if len(tones) == 0 {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Warn("tone playback panicked", "sound", kind, "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
		defer cancel()
		if err := s.player.Play(ctx, tones); err != nil {
			s.logger.Warn("tone playback failed", "sound", kind, "err", err)
		}
	}()
}
