// Package notify keeps the bounded, newest-first list of toasts shown to
// the user, with self-dismiss timers and optional sound cues.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/wealthtracker/internal/storage"
)

const (
	MaxToasts       = 5
	DefaultDuration = 6 * time.Second
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSuccess     Variant = "success"
	VariantWarning     Variant = "warning"
	VariantDestructive Variant = "destructive"
)

type Sound string

const (
	SoundNone    Sound = "none"
	SoundSuccess Sound = "success"
	SoundWarning Sound = "warning"
	SoundError   Sound = "error"
)

type Options struct {
	Title       string
	Description string
	Variant     Variant
	Sound       Sound
	Duration    time.Duration
	ActionLabel string
	OnClick     func()
}

type Toast struct {
	ID          string
	Title       string
	Description string
	Variant     Variant
	Sound       Sound
	Duration    time.Duration
	ActionLabel string
	CreatedAt   time.Time
}

// Age is the whole seconds since the toast was shown.
func (t Toast) Age(now time.Time) time.Duration {
	return max(0, now.Sub(t.CreatedAt).Truncate(time.Second))
}

type entry struct {
	toast   Toast
	onClick func()
	timer   *time.Timer
}

type Service struct {
	mu           sync.Mutex
	items        []*entry
	subs         map[int]func([]Toast)
	nextSub      int
	soundEnabled bool

	store  storage.Store
	player TonePlayer
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store storage.Store, player TonePlayer, logger *slog.Logger) *Service {
	if player == nil {
		player = NopPlayer{}
	}
	return &Service{
		subs:         make(map[int]func([]Toast)),
		soundEnabled: true,
		store:        store,
		player:       player,
		logger:       logger,
		now:          time.Now,
	}
}

// Toast shows a notification and returns its id.
func (s *Service) Toast(opts Options) string {
	t := Toast{
		ID:          uuid.NewString(),
		Title:       opts.Title,
		Description: opts.Description,
		Variant:     opts.Variant,
		Sound:       opts.Sound,
		Duration:    opts.Duration,
		ActionLabel: opts.ActionLabel,
		CreatedAt:   s.now(),
	}
	if t.Variant == "" {
		t.Variant = VariantDefault
	}
	if t.Sound == "" {
		t.Sound = SoundNone
	}
	if t.Duration <= 0 {
		t.Duration = DefaultDuration
	}

	e := &entry{toast: t, onClick: opts.OnClick}

	s.mu.Lock()
	s.items = append([]*entry{e}, s.items...)
	for _, evicted := range s.items[min(len(s.items), MaxToasts):] {
		if evicted.timer != nil {
			evicted.timer.Stop()
		}
	}
	s.items = s.items[:min(len(s.items), MaxToasts)]
	e.timer = time.AfterFunc(t.Duration, func() { s.Dismiss(t.ID) })
	play := s.soundEnabled && t.Sound != SoundNone
	s.mu.Unlock()

	if play {
		s.playAsync(t.Sound)
	}
	s.publish()
	return t.ID
}

// Dismiss removes a toast. Unknown or already dismissed ids are ignored.
func (s *Service) Dismiss(id string) {
	s.mu.Lock()
	removed := false
	for i, e := range s.items {
		if e.toast.ID != id {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		removed = true
		break
	}
	s.mu.Unlock()

	if removed {
		s.publish()
	}
}

// Click runs the toast's handler, then dismisses it.
func (s *Service) Click(id string) {
	s.mu.Lock()
	var handler func()
	for _, e := range s.items {
		if e.toast.ID == id {
			handler = e.onClick
			break
		}
	}
	s.mu.Unlock()

	if handler != nil {
		handler()
	}
	s.Dismiss(id)
}

// List returns the visible toasts, newest first.
func (s *Service) List() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Service) snapshot() []Toast {
	out := make([]Toast, len(s.items))
	for i, e := range s.items {
		out[i] = e.toast
	}
	return out
}

// Subscribe registers fn to receive the list after every change. The
// returned func unregisters it.
func (s *Service) Subscribe(fn func([]Toast)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Service) publish() {
	s.mu.Lock()
	list := s.snapshot()
	subs := make([]func([]Toast), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(list)
	}
}

// LoadSoundPreference reads the persisted sound flag. A missing or
// unrecognised value leaves sound on.
func (s *Service) LoadSoundPreference(ctx context.Context) error {
	v, ok, err := s.store.Get(ctx, storage.KeyToastSoundEnabled)
	if err != nil {
		return err
	}
	enabled := true
	if ok && v == "0" {
		enabled = false
	}
	s.mu.Lock()
	s.soundEnabled = enabled
	s.mu.Unlock()
	return nil
}

func (s *Service) SetSoundEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	s.soundEnabled = enabled
	s.mu.Unlock()

	v := "0"
	if enabled {
		v = "1"
	}
	return s.store.Set(ctx, storage.KeyToastSoundEnabled, v)
}

func (s *Service) SoundEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soundEnabled
}

// Close stops every pending timer.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}
