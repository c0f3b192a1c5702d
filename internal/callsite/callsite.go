// Package callsite resolves the source location of the code that issued a
// log call.
//
// Resolution is an injected capability. The default [Runtime] resolver walks
// the goroutine's call stack and skips every frame that belongs to the
// logging library itself, so the reported location is the caller's no
// matter how many internal layers sit in between. [Depth] keeps the older
// fixed-depth rule for hosts that want it; it is the only resolver that can
// report a misconfiguration. Hosts that already know where they are (a
// script interpreter, a test harness) can supply a [Static] location or any
// [ResolverFunc].
package callsite

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Iron-Ham/smollog/internal/errors"
)

// ModulePath is the import path prefix of this module.
const ModulePath = "github.com/Iron-Ham/smollog"

// maxFrames bounds how deep the runtime resolver looks.
const maxFrames = 64

// Location is a best-effort source position. Column is zero when the
// provider has no column information, which is always the case for frames
// resolved from the Go runtime.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// String formats the location as file:line:column.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Resolver reports the location of the logical caller of the logging API.
// A nil location with a nil error means the site is unknown.
type Resolver interface {
	Resolve() (*Location, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func() (*Location, error)

// Resolve calls f.
func (f ResolverFunc) Resolve() (*Location, error) {
	return f()
}

// Static returns a resolver that always reports loc.
func Static(loc Location) Resolver {
	return ResolverFunc(func() (*Location, error) {
		l := loc
		return &l, nil
	})
}

// None returns a resolver that never resolves a location.
func None() Resolver {
	return ResolverFunc(func() (*Location, error) {
		return nil, nil
	})
}

// DefaultPrefixes are the function-name prefixes treated as library frames.
func DefaultPrefixes() []string {
	return []string{
		ModulePath + "/internal/",
		ModulePath + "/pkg/",
	}
}

// RuntimeResolver filters call-stack frames by function name.
type RuntimeResolver struct {
	prefixes []string
}

// Runtime returns a resolver that reports the first stack frame whose
// function does not start with one of prefixes. With no prefixes,
// DefaultPrefixes is used. Frames declared in _test.go files never count as
// library frames, so tests inside library packages resolve to themselves.
func Runtime(prefixes ...string) *RuntimeResolver {
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes()
	}
	return &RuntimeResolver{prefixes: prefixes}
}

// Resolve walks the current stack.
func (r *RuntimeResolver) Resolve() (*Location, error) {
	pcs := make([]uintptr, maxFrames)
	// Skip runtime.Callers and Resolve itself.
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return nil, nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !r.isLibrary(frame) && !isRuntime(frame) {
			return &Location{File: frame.File, Line: frame.Line}, nil
		}
		if !more {
			break
		}
	}
	return nil, nil
}

func (r *RuntimeResolver) isLibrary(frame runtime.Frame) bool {
	if strings.HasSuffix(frame.File, "_test.go") {
		return false
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(frame.Function, p) {
			return true
		}
	}
	return false
}

// isRuntime reports frames from the Go runtime itself, such as goexit.
func isRuntime(frame runtime.Frame) bool {
	return strings.HasPrefix(frame.Function, "runtime.")
}

// DepthResolver reports the frame at a fixed distance from its own caller.
type DepthResolver struct {
	skip int
}

// Depth returns a resolver that reports the frame skip levels above the
// function that calls Resolve: Depth(0) is that function's direct caller.
// Every layer between the user's call and Resolve counts, so surrounding code
// must not add or remove wrappers without adjusting skip. When the call
// history is shorter than that, Resolve returns a *errors.ResolverError.
func Depth(skip int) *DepthResolver {
	if skip < 0 {
		skip = 0
	}
	return &DepthResolver{skip: skip}
}

// Resolve returns the frame skip levels above Resolve's caller.
func (r *DepthResolver) Resolve() (*Location, error) {
	pcs := make([]uintptr, r.skip+maxFrames)
	// Skip runtime.Callers, Resolve and Resolve's caller.
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return nil, nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	count := 0
	for {
		frame, more := frames.Next()
		if count == r.skip {
			return &Location{File: frame.File, Line: frame.Line}, nil
		}
		count++
		if !more {
			break
		}
	}
	return nil, errors.NewResolverError(r.skip, count)
}
