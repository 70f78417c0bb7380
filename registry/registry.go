// Package registry maps a lowercase language tag to the constructor for
// its adapter (spec §4.3), the way the teacher's cmd/ralph-cc wires a
// fixed sequence of pkg/*gen translators by name rather than by
// interface discovery. Registration here is a plain map literal rather
// than an init-time side-effecting registration call, since every
// adapter this repo ships is known at compile time — there is no plugin
// boundary to support.
package registry

import (
	"fmt"
	"sort"

	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/lang/c"
	"github.com/tacir/lowercore/lang/cpp"
	"github.com/tacir/lowercore/lang/csharp"
	"github.com/tacir/lowercore/lang/golang"
	"github.com/tacir/lowercore/lang/java"
	"github.com/tacir/lowercore/lang/javascript"
	"github.com/tacir/lowercore/lang/kotlin"
	"github.com/tacir/lowercore/lang/lua"
	"github.com/tacir/lowercore/lang/pascal"
	"github.com/tacir/lowercore/lang/php"
	"github.com/tacir/lowercore/lang/python"
	"github.com/tacir/lowercore/lang/ruby"
	"github.com/tacir/lowercore/lang/rust"
	"github.com/tacir/lowercore/lang/scala"
	"github.com/tacir/lowercore/lang/typescript"
)

// Factory constructs a fresh adapter instance. Each call to the public
// API builds its own adapter (spec §4.3): a factory, not a shared
// singleton, since an adapter carries per-lowering mutable state
// (engine counters, stacks) that is not safe to reuse concurrently
// (spec §5).
type Factory func() adapter.Adapter

// factories is the lowercase-language-tag → Factory table (spec §4.3).
// Lazy in the sense the spec asks for: constructing the table costs
// nothing beyond allocating closures, and no adapter's own engine.New
// runs until Lookup's caller actually calls the returned Factory.
var factories = map[string]Factory{
	"python":     func() adapter.Adapter { return python.New() },
	"javascript": func() adapter.Adapter { return javascript.New() },
	"typescript": func() adapter.Adapter { return typescript.New() },
	"java":       func() adapter.Adapter { return java.New() },
	"kotlin":     func() adapter.Adapter { return kotlin.New() },
	"scala":      func() adapter.Adapter { return scala.New() },
	"c":          func() adapter.Adapter { return c.New() },
	"cpp":        func() adapter.Adapter { return cpp.New() },
	"csharp":     func() adapter.Adapter { return csharp.New() },
	"go":         func() adapter.Adapter { return golang.New() },
	"ruby":       func() adapter.Adapter { return ruby.New() },
	"lua":        func() adapter.Adapter { return lua.New() },
	"php":        func() adapter.Adapter { return php.New() },
	"pascal":     func() adapter.Adapter { return pascal.New() },
	"rust":       func() adapter.Adapter { return rust.New() },
}

// ErrUnknownLanguage reports a language tag with no registered adapter.
type ErrUnknownLanguage struct {
	Tag string
}

func (e *ErrUnknownLanguage) Error() string {
	return fmt.Sprintf("registry: no adapter registered for language %q", e.Tag)
}

// Lookup returns the factory registered for tag, or ErrUnknownLanguage.
func Lookup(tag string) (Factory, error) {
	f, ok := factories[tag]
	if !ok {
		return nil, &ErrUnknownLanguage{Tag: tag}
	}
	return f, nil
}

// New constructs a fresh adapter for tag directly, the convenience form
// callers reach for instead of Lookup+call when they don't need to hold
// onto the factory itself.
func New(tag string) (adapter.Adapter, error) {
	f, err := Lookup(tag)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

// Languages returns every registered language tag, sorted, for the CLI's
// list-languages subcommand and diagnostics.
func Languages() []string {
	tags := make([]string, 0, len(factories))
	for tag := range factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
