package widget

import (
	"context"
	"strings"
	"time"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/bnema/chatkit-broker/internal/ports"
	"github.com/rs/zerolog"
)

const (
	DefaultLoadTimeout = 30 * time.Second

	loadFailedMessage     = "Failed to load ChatKit assets."
	notInitializedMessage = "ChatKit script loaded but did not initialize."
)

// Loader injects the vendor script into a page at most once. Concurrent
// callers, including callers of other Loaders over the same Page, share one
// in-flight load. A success is kept for the life of the Page and a failure is
// forgotten so the next call retries.
type Loader struct {
	page      *Page
	fetcher   Fetcher
	scriptURL string
	timeout   time.Duration
	logger    zerolog.Logger
}

var _ ports.WidgetLoader = (*Loader)(nil)

func NewLoader(page *Page, fetcher Fetcher, scriptURL string, logger zerolog.Logger) *Loader {
	if strings.TrimSpace(scriptURL) == "" {
		scriptURL = DefaultScriptURL
	}
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}
	return &Loader{
		page:      page,
		fetcher:   fetcher,
		scriptURL: scriptURL,
		timeout:   DefaultLoadTimeout,
		logger:    logger.With().Str("component", "widget_loader").Logger(),
	}
}

// WithTimeout bounds a single load attempt.
func (l *Loader) WithTimeout(timeout time.Duration) *Loader {
	if timeout > 0 {
		l.timeout = timeout
	}
	return l
}

// Load returns the widget handle, loading the script if needed. ctx bounds
// only this caller's wait; the shared load keeps running for other callers.
func (l *Loader) Load(ctx context.Context) (ports.WidgetHandle, error) {
	if l == nil || l.page == nil {
		return nil, domain.ErrNoBrowserEnvironment
	}
	if handle, ok := l.page.widgetHandle(); ok {
		return handle, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := l.page.loads.DoChan(GlobalName, func() (any, error) {
		return l.load(loadCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) load(ctx context.Context) (*Handle, error) {
	if handle, ok := l.page.widgetHandle(); ok {
		return handle, nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	started := time.Now()
	source, err := l.fetcher.Fetch(ctx, l.scriptURL)
	if err != nil {
		l.logger.Warn().Err(err).Str("url", l.scriptURL).Msg("fetch widget script")
		return nil, &domain.AssetLoadError{URL: l.scriptURL, Message: loadFailedMessage, Err: err}
	}

	if err := l.page.RunScript(l.scriptURL, string(source)); err != nil {
		l.logger.Warn().Err(err).Str("url", l.scriptURL).Msg("evaluate widget script")
		return nil, &domain.AssetLoadError{URL: l.scriptURL, Message: notInitializedMessage, Err: err}
	}

	handle, ok := l.page.widgetHandle()
	if !ok {
		return nil, &domain.AssetLoadError{URL: l.scriptURL, Message: notInitializedMessage}
	}

	l.logger.Debug().Str("url", l.scriptURL).Dur("elapsed", time.Since(started)).Msg("widget script loaded")
	return handle, nil
}
