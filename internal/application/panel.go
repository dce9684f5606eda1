package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/bnema/chatkit-broker/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type PanelState int

const (
	PanelIdle PanelState = iota
	PanelLoading
	PanelMounted
	PanelErrored
)

func (s PanelState) String() string {
	switch s {
	case PanelIdle:
		return "idle"
	case PanelLoading:
		return "loading"
	case PanelMounted:
		return "mounted"
	case PanelErrored:
		return "errored"
	default:
		return "unknown"
	}
}

const (
	DefaultPanelElementID = "chatkit"
	DefaultCycleTimeout   = 45 * time.Second

	unexpectedMountMessage = "Unexpected error mounting ChatKit."
	missingKeyMarker       = "openai_api_key is not configured"
)

type PanelConfig struct {
	ElementID     string
	Layout        string
	Theme         string
	AssistantName string
	// CycleTimeout bounds one load+fetch+mount cycle.
	CycleTimeout time.Duration
	Production   bool
}

func (c PanelConfig) withDefaults() PanelConfig {
	if strings.TrimSpace(c.ElementID) == "" {
		c.ElementID = DefaultPanelElementID
	}
	if c.Layout == "" {
		c.Layout = "embedded"
	}
	if c.Theme == "" {
		c.Theme = "dark"
	}
	if c.AssistantName == "" {
		c.AssistantName = "ChatKit Guide"
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = DefaultCycleTimeout
	}
	return c
}

// ChatPanel drives one container through Idle, Loading, Mounted and Errored.
// Each Start begins a new cycle; results from superseded cycles are dropped and
// any instance they produce is destroyed.
type ChatPanel struct {
	loader      ports.WidgetLoader
	credentials ports.CredentialSource
	cfg         PanelConfig
	logger      zerolog.Logger

	// mountSlot admits one Mount at a time. A cycle waits here until an older
	// cycle's Mount has returned and any stale instance it produced has been
	// destroyed, so the element is free when the newer cycle claims it.
	mountSlot chan struct{}

	mu         sync.Mutex
	generation uint64
	state      PanelState
	err        error
	cancel     context.CancelFunc
	instance   ports.WidgetInstance
}

func NewChatPanel(loader ports.WidgetLoader, credentials ports.CredentialSource, cfg PanelConfig, logger zerolog.Logger) *ChatPanel {
	return &ChatPanel{
		loader:      loader,
		credentials: credentials,
		cfg:         cfg.withDefaults(),
		logger:      logger.With().Str("component", "chat_panel").Logger(),
		mountSlot:   make(chan struct{}, 1),
	}
}

// Start begins a mount cycle with the given overrides and returns a channel
// closed when the cycle settles or is superseded.
func (p *ChatPanel) Start(ctx context.Context, overrides *domain.DeveloperConfig) <-chan struct{} {
	cycleCtx, cancel := context.WithTimeout(ctx, p.cfg.CycleTimeout)

	p.mu.Lock()
	p.generation++
	gen := p.generation
	if p.cancel != nil {
		p.cancel()
	}
	previous := p.instance
	p.instance = nil
	p.cancel = cancel
	p.state = PanelLoading
	p.err = nil
	p.mu.Unlock()

	p.destroy(previous)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		p.run(cycleCtx, gen, overrides)
	}()
	return done
}

// Unmount cancels any in-flight cycle and destroys the attached instance.
func (p *ChatPanel) Unmount() {
	p.mu.Lock()
	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	previous := p.instance
	p.instance = nil
	p.state = PanelIdle
	p.err = nil
	p.mu.Unlock()

	p.destroy(previous)
}

func (p *ChatPanel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ChatPanel) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// NeedsDeveloperConfig reports whether the last failure was a missing server
// secret that a local developer override could fix.
func (p *ChatPanel) NeedsDeveloperConfig() bool {
	if p.cfg.Production {
		return false
	}
	err := p.Err()
	return err != nil && strings.Contains(strings.ToLower(err.Error()), missingKeyMarker)
}

func (p *ChatPanel) run(ctx context.Context, gen uint64, overrides *domain.DeveloperConfig) {
	var (
		handle ports.WidgetHandle
		secret domain.Credential
	)

	req := domain.SessionRequest{}
	if !p.cfg.Production {
		req = overrides.SessionRequest()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := p.loader.Load(gctx)
		if err != nil {
			return err
		}
		handle = h
		return nil
	})
	g.Go(func() error {
		s, err := p.credentials.RequestClientSecret(gctx, req)
		if err != nil {
			return err
		}
		secret = s
		return nil
	})

	if err := g.Wait(); err != nil {
		p.fail(gen, err)
		return
	}

	select {
	case p.mountSlot <- struct{}{}:
	case <-ctx.Done():
		p.fail(gen, ctx.Err())
		return
	}
	defer func() { <-p.mountSlot }()

	if !p.isCurrent(gen) {
		return
	}

	instance, err := handle.Mount(ctx, domain.MountOptions{
		ElementID:     p.cfg.ElementID,
		ClientSecret:  secret,
		Layout:        p.cfg.Layout,
		Theme:         p.cfg.Theme,
		AssistantName: p.cfg.AssistantName,
	})
	if err != nil {
		p.fail(gen, err)
		return
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.Debug().Msg("discarding widget mounted by superseded cycle")
		p.destroy(instance)
		return
	}
	p.instance = instance
	p.state = PanelMounted
	p.err = nil
	p.mu.Unlock()

	p.logger.Debug().Str("element", p.cfg.ElementID).Msg("widget mounted")
}

func (p *ChatPanel) isCurrent(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return gen == p.generation
}

func (p *ChatPanel) fail(gen uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		return
	}
	if errors.Is(err, context.Canceled) {
		p.state = PanelIdle
		p.err = nil
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("timed out preparing the ChatKit session: %w", err)
	}
	if strings.TrimSpace(err.Error()) == "" {
		err = errors.New(unexpectedMountMessage)
	}

	p.state = PanelErrored
	p.err = err
	p.logger.Warn().Err(err).Msg("chat panel failed")
}

func (p *ChatPanel) destroy(instance ports.WidgetInstance) {
	if instance == nil {
		return
	}
	if err := instance.Destroy(); err != nil {
		p.logger.Warn().Err(err).Msg("destroy widget instance")
	}
}
