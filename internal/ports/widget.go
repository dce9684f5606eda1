package ports

import (
	"context"

	"github.com/bnema/chatkit-broker/internal/domain"
)

// WidgetLoader makes the vendor widget available, loading it at most once.
type WidgetLoader interface {
	Load(ctx context.Context) (WidgetHandle, error)
}

type WidgetHandle interface {
	Mount(ctx context.Context, opts domain.MountOptions) (WidgetInstance, error)
}

type WidgetInstance interface {
	Destroy() error
}
