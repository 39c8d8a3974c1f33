// Package prefix caches per-group command prefixes with write-through to
// the store.
package prefix

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	logx "reminderbot/pkg/logx"
)

// MaxLen is the longest prefix accepted, in characters.
const MaxLen = 100

var (
	ErrTooLong = errors.New("prefix: too long")
	ErrEmpty   = errors.New("prefix: empty")
	ErrNoGroup = errors.New("prefix: not a group chat")
)

// Store is the persistence the map needs.
type Store interface {
	ReplacePrefix(ctx context.Context, guildID int64, prefix string) error
	Prefixes(ctx context.Context) (map[int64]string, error)
}

// Map answers prefix lookups from memory on every dispatch.
type Map struct {
	store Store
	log   logx.Logger

	mu  sync.RWMutex
	def string
	m   map[int64]string
}

func New(store Store, def string, log logx.Logger) *Map {
	return &Map{
		store: store,
		log:   log.With(logx.String("comp", "prefix")),
		def:   def,
		m:     map[int64]string{},
	}
}

// Load replaces the cache with the stored prefixes.
func (p *Map) Load(ctx context.Context) error {
	m, err := p.store.Prefixes(ctx)
	if err != nil {
		return fmt.Errorf("load prefixes: %w", err)
	}
	if m == nil {
		m = map[int64]string{}
	}
	p.mu.Lock()
	p.m = m
	p.mu.Unlock()
	p.log.Debug("prefixes loaded", logx.Int("count", len(m)))
	return nil
}

// For returns the prefix of chatID, or the default when none is set.
func (p *Map) For(chatID int64) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.m[chatID]; ok && v != "" {
		return v
	}
	return p.def
}

func (p *Map) Default() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.def
}

// SetDefault changes the fallback prefix. Empty values are ignored.
func (p *Map) SetDefault(def string) {
	if strings.TrimSpace(def) == "" {
		return
	}
	p.mu.Lock()
	p.def = def
	p.mu.Unlock()
}

// Set validates and stores prefix for a group chat. The cache changes only
// after the store accepted the value.
func (p *Map) Set(ctx context.Context, chatID int64, prefix string) error {
	if chatID >= 0 {
		return ErrNoGroup
	}
	if err := Validate(prefix); err != nil {
		return err
	}
	if err := p.store.ReplacePrefix(ctx, chatID, prefix); err != nil {
		return fmt.Errorf("store prefix: %w", err)
	}
	p.mu.Lock()
	p.m[chatID] = prefix
	p.mu.Unlock()
	return nil
}

func Validate(prefix string) error {
	if strings.TrimSpace(prefix) == "" {
		return ErrEmpty
	}
	if utf8.RuneCountInString(prefix) > MaxLen {
		return ErrTooLong
	}
	return nil
}

// Len is the number of groups with a custom prefix.
func (p *Map) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}
