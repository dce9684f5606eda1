package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bnema/chatkit-broker/internal/domain"
	"github.com/bnema/chatkit-broker/internal/ports"
	"github.com/dop251/goja"
)

// Handle wraps the ChatKit global once it exists on the page.
type Handle struct {
	page   *Page
	global *goja.Object
	mount  goja.Callable
}

var _ ports.WidgetHandle = (*Handle)(nil)

func newHandle(page *Page) (*Handle, error) {
	page.mu.Lock()
	defer page.mu.Unlock()

	global, ok := page.globalObjectLocked(GlobalName)
	if !ok {
		return nil, fmt.Errorf("%s global is not defined", GlobalName)
	}
	mount, ok := goja.AssertFunction(global.Get("mount"))
	if !ok {
		return nil, fmt.Errorf("%s.mount is not a function", GlobalName)
	}

	return &Handle{page: page, global: global, mount: mount}, nil
}

// Mount attaches a new instance to the element named by opts.ElementID. The
// element must not already host a live instance.
func (h *Handle) Mount(ctx context.Context, opts domain.MountOptions) (ports.WidgetInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.ElementID) == "" {
		return nil, errors.New("mount: element id is required")
	}
	if opts.ClientSecret.IsZero() {
		return nil, domain.ErrMissingClientSecret
	}

	element := h.page.Element(opts.ElementID)
	instance := &Instance{element: element}
	if err := element.attach(instance); err != nil {
		return nil, err
	}

	if err := h.callMount(instance, opts); err != nil {
		element.detach(instance)
		return nil, err
	}
	return instance, nil
}

func (h *Handle) callMount(instance *Instance, opts domain.MountOptions) error {
	h.page.mu.Lock()
	defer h.page.mu.Unlock()

	vm := h.page.vm
	options := map[string]any{
		"element": map[string]any{"id": instance.element.ID},
		"client":  map[string]any{"clientSecret": opts.ClientSecret.Value()},
		"ui": map[string]any{
			"layout":        opts.Layout,
			"theme":         opts.Theme,
			"assistantName": opts.AssistantName,
		},
	}

	result, err := h.mount(h.global, vm.ToValue(options))
	if err != nil {
		return fmt.Errorf("%s.mount: %w", GlobalName, err)
	}

	if promise, ok := result.Export().(*goja.Promise); ok {
		switch promise.State() {
		case goja.PromiseStateRejected:
			return fmt.Errorf("%s.mount rejected: %s", GlobalName, promise.Result().String())
		case goja.PromiseStateFulfilled:
			result = promise.Result()
		default:
			return fmt.Errorf("%s.mount did not settle", GlobalName)
		}
	}

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil
	}
	obj, ok := result.(*goja.Object)
	if !ok {
		return nil
	}
	if destroy, ok := goja.AssertFunction(obj.Get("destroy")); ok {
		instance.destroy = func() error {
			h.page.mu.Lock()
			defer h.page.mu.Unlock()
			_, err := destroy(obj)
			return err
		}
	}
	return nil
}

// Instance is one mounted widget. Destroy is safe to call more than once.
type Instance struct {
	element *Element
	destroy func() error

	once      sync.Once
	mu        sync.Mutex
	destroyed bool
	err       error
}

func (i *Instance) Element() *Element {
	return i.element
}

func (i *Instance) Destroy() error {
	i.once.Do(func() {
		var err error
		if i.destroy != nil {
			err = i.destroy()
		}
		i.element.detach(i)

		i.mu.Lock()
		i.destroyed = true
		i.err = err
		i.mu.Unlock()
	})

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

func (i *Instance) Destroyed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroyed
}
