// Package translate provides best-effort machine translation of notice text.
// It never fails the consent flow: any problem falls back to the original
// text.
package translate

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"cmsportal/pkg/requestcontext"
)

type Metrics interface {
	IncrementTranslationFallbacks()
}

type inflight struct {
	id     uint64
	cancel context.CancelFunc
}

// Service adds caching and per-slot supersession to a Translator. A slot
// names one piece of on-screen text; a newer request for the same slot
// cancels the older one so a slow reply cannot overwrite a newer language.
type Service struct {
	translator Translator
	cache      Cache
	logger     *slog.Logger
	metrics    Metrics

	mu     sync.Mutex
	nextID uint64
	slots  map[string]inflight
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(translator Translator, opts ...Option) *Service {
	s := &Service{
		translator: translator,
		logger:     slog.Default(),
		slots:      make(map[string]inflight),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Translate returns text in lang, or text itself when translation is not
// possible.
func (s *Service) Translate(ctx context.Context, slot, text, lang string) string {
	if strings.TrimSpace(text) == "" || lang == "" || s.translator == nil {
		return text
	}
	key := cacheKey(text, lang)
	if s.cache != nil {
		if v, ok := s.cache.Get(ctx, key); ok {
			return v
		}
	}

	callCtx, id := s.begin(ctx, slot)
	defer s.end(slot, id)

	out, err := s.translator.Translate(callCtx, text, lang)
	if err != nil {
		s.fallback(ctx, slot, lang, err)
		return text
	}
	if s.cache != nil {
		s.cache.Set(context.WithoutCancel(ctx), key, out)
	}
	return out
}

// Cancel aborts every in-flight request whose slot starts with prefix.
func (s *Service) Cancel(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot, f := range s.slots {
		if strings.HasPrefix(slot, prefix) {
			f.cancel()
			delete(s.slots, slot)
		}
	}
}

func (s *Service) begin(ctx context.Context, slot string) (context.Context, uint64) {
	callCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.slots[slot]; ok {
		prev.cancel()
	}
	s.nextID++
	s.slots[slot] = inflight{id: s.nextID, cancel: cancel}
	return callCtx, s.nextID
}

func (s *Service) end(slot string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.slots[slot]; ok && f.id == id {
		f.cancel()
		delete(s.slots, slot)
	}
}

func (s *Service) fallback(ctx context.Context, slot, lang string, err error) {
	if s.metrics != nil {
		s.metrics.IncrementTranslationFallbacks()
	}
	s.logger.DebugContext(ctx, "translation fell back to original text",
		"slot", slot,
		"lang", lang,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
