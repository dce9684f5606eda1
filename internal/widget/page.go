// Package widget hosts the vendor chat widget in a headless page runtime.
//
// A Page owns a JavaScript VM that plays the role of the browser window: the
// vendor script is evaluated into it and exposes a ChatKit global with a
// mount(options) function. The Loader makes sure that happens at most once per
// page; Handle and Instance wrap the global and each mounted widget.
package widget

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"golang.org/x/sync/singleflight"
)

const (
	GlobalName       = "ChatKit"
	DefaultScriptURL = "https://cdn.platform.openai.com/deployments/chatkit/chatkit.js"
)

// Page is the page-wide global namespace. The VM is not goroutine-safe, so
// every access goes through mu. The widget handle and the in-flight script
// load belong to the page, so every Loader over one Page shares them.
type Page struct {
	mu       sync.Mutex
	vm       *goja.Runtime
	scripts  map[string]bool
	elements map[string]*Element

	handleMu sync.Mutex
	handle   *Handle
	loads    singleflight.Group
}

func NewPage() *Page {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	_ = vm.Set("window", vm.GlobalObject())

	return &Page{
		vm:       vm,
		scripts:  map[string]bool{},
		elements: map[string]*Element{},
	}
}

// RunScript evaluates source as if loaded from a <script src=src> tag. The tag
// is marked loaded only when evaluation succeeds.
func (p *Page) RunScript(src string, source string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.vm.RunScript(src, source); err != nil {
		return fmt.Errorf("run script %q: %w", src, err)
	}
	p.scripts[src] = true
	return nil
}

func (p *Page) ScriptLoaded(src string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scripts[src]
}

// HasGlobal reports whether name is defined on the window object.
func (p *Page) HasGlobal(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.globalObjectLocked(name)
	return ok
}

// Element returns the container with the given id, creating it on first use.
func (p *Page) Element(id string) *Element {
	id = strings.TrimSpace(id)

	p.mu.Lock()
	defer p.mu.Unlock()

	if el, ok := p.elements[id]; ok {
		return el
	}
	el := &Element{ID: id}
	p.elements[id] = el
	return el
}

// widgetHandle returns the page's Handle, adopting the ChatKit global the
// first time it is seen.
func (p *Page) widgetHandle() (*Handle, bool) {
	p.handleMu.Lock()
	defer p.handleMu.Unlock()

	if p.handle != nil {
		return p.handle, true
	}
	if !p.HasGlobal(GlobalName) {
		return nil, false
	}
	handle, err := newHandle(p)
	if err != nil {
		return nil, false
	}
	p.handle = handle
	return handle, true
}

func (p *Page) globalObjectLocked(name string) (*goja.Object, bool) {
	value := p.vm.GlobalObject().Get(name)
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, false
	}
	obj, ok := value.(*goja.Object)
	return obj, ok
}

// Element is a container a widget instance can be mounted into. It holds at
// most one live instance.
type Element struct {
	ID string

	mu     sync.Mutex
	active *Instance
}

func (e *Element) Active() *Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Element) attach(instance *Instance) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		return fmt.Errorf("element %q already hosts a mounted widget", e.ID)
	}
	e.active = instance
	return nil
}

func (e *Element) detach(instance *Instance) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == instance {
		e.active = nil
	}
}
