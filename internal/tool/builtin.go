package tool

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// BuiltinOptions carries runtime dependencies needed by built-in tool factories.
type BuiltinOptions struct {
	Location   *time.Location
	Now        func() time.Time
	HTTPClient *http.Client
	CalDAV     CalDAVOptions
	EmailFrom  string
}

// CalDAVOptions enables publishing calendar invites when Endpoint is set.
type CalDAVOptions struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarPath string
	Timeout      time.Duration
}

const DefaultCalDAVTimeout = 10 * time.Second

// Clock returns the configured time source, defaulting to time.Now in Location.
func (o BuiltinOptions) Clock() time.Time {
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	return now().In(o.TimeLocation())
}

func (o BuiltinOptions) TimeLocation() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

type BuiltinFactory func(options BuiltinOptions) (Tool, error)

// catalog maps built-in names to their factories. Built-in packages fill the
// package-level instance from init().
type catalog struct {
	mu        sync.RWMutex
	factories map[string]BuiltinFactory
}

var builtins = &catalog{factories: map[string]BuiltinFactory{}}

func (c *catalog) register(name string, factory BuiltinFactory) error {
	if name == "" {
		return fmt.Errorf("built-in name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("built-in factory cannot be nil (%s)", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[name]; exists {
		return fmt.Errorf("built-in already registered: %s", name)
	}
	c.factories[name] = factory
	return nil
}

func (c *catalog) names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *catalog) factory(name string) (BuiltinFactory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[name]
	return f, ok
}

// RegisterBuiltin adds a factory to the catalog. It panics on a bad or
// repeated name, which can only happen at init time.
func RegisterBuiltin(name string, factory BuiltinFactory) {
	if err := builtins.register(NormalizeToolName(name), factory); err != nil {
		panic("tool: " + err.Error())
	}
}

// BuiltinNames returns every registered built-in, sorted.
func BuiltinNames() []string {
	return builtins.names()
}

// InstantiateBuiltins constructs the named built-ins in the given order; an
// empty list means all of them. Unknown and repeated names are collected and
// reported together.
func InstantiateBuiltins(names []string, options BuiltinOptions) ([]Tool, error) {
	if len(names) == 0 {
		names = builtins.names()
	}

	var (
		tools = make([]Tool, 0, len(names))
		seen  = make(map[string]bool, len(names))
		errs  []error
	)
	for _, raw := range names {
		name := NormalizeToolName(raw)
		if seen[name] {
			errs = append(errs, fmt.Errorf("built-in %q listed twice", name))
			continue
		}
		seen[name] = true

		factory, ok := builtins.factory(name)
		if !ok {
			errs = append(errs, fmt.Errorf("built-in %q: not registered", name))
			continue
		}
		t, err := factory(options)
		if err != nil {
			errs = append(errs, fmt.Errorf("built-in %q: %w", name, err))
			continue
		}
		tools = append(tools, t)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return tools, nil
}
