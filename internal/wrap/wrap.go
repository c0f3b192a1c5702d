// Package wrap decorates functions so every call is logged as one record.
package wrap

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/payload"
	"github.com/Iron-Ham/smollog/internal/session"
)

// Payload keys of a wrapped-call record.
const (
	KeyArgs           = "args"
	KeyResult         = "result"
	KeyError          = "error"
	KeyPanic          = "panic"
	KeyExited         = "exited"
	KeyTransformError = "transformError"
)

// Options configures Wrap.
type Options[A, R any] struct {
	// Name is the record label. Defaults to the wrapped function's name.
	Name string
	// Transform replaces the logged result. It only affects the record: the
	// caller always receives fn's own result. If Transform fails or panics,
	// the untransformed result is logged together with the failure.
	Transform func(args A, result R) (any, error)
}

// Func is the shape of a wrappable call.
type Func[A, R any] func(ctx context.Context, args A) (R, error)

// Wrap returns a function that calls fn and logs exactly one record per call
// through s. The record payload holds the arguments and either the result or
// the error.
//
// Errors from fn are returned unchanged. A panic in fn is recorded and then
// re-raised. If fn ends its goroutine with runtime.Goexit, as t.FailNow
// does, the call is recorded with "exited": true and the exit continues. If the record cannot be stored after a successful call, the
// result is returned together with the storage error; after a failed call
// the original error wins and the storage failure only reaches the
// diagnostic log.
func Wrap[A, R any](s *session.Session, fn Func[A, R], opts Options[A, R]) Func[A, R] {
	name := opts.Name
	if name == "" {
		name = FuncName(fn)
	}
	logger := s.Logger().WithLabel(name)

	return func(ctx context.Context, args A) (result R, err error) {
		panicked := true
		defer func() {
			if !panicked {
				return
			}
			// panic(nil) arrives as *runtime.PanicNilError, so a nil
			// recover here means runtime.Goexit.
			r := recover()
			if r == nil {
				pairs := payload.Pairs{{Key: KeyArgs, Value: args}, {Key: KeyExited, Value: true}}
				if _, serr := s.Emit(ctx, name, pairs); serr != nil {
					logger.Error("failed to record exited call", "error", serr)
				}
				return
			}
			pairs := payload.Pairs{{Key: KeyArgs, Value: args}, {Key: KeyPanic, Value: fmt.Sprint(r)}}
			if _, serr := s.Emit(ctx, name, pairs); serr != nil {
				logger.Error("failed to record panicking call", "error", serr)
			}
			panic(r)
		}()
		result, err = fn(ctx, args)
		panicked = false

		if err != nil {
			logger.Info("wrapped call failed", "error", err)
			pairs := payload.Pairs{{Key: KeyArgs, Value: args}, {Key: KeyError, Value: err}}
			if _, serr := s.Emit(ctx, name, pairs); serr != nil {
				logger.Error("failed to record failed call", "error", serr)
			}
			return result, err
		}

		pairs := payload.Pairs{{Key: KeyArgs, Value: args}}
		if opts.Transform == nil {
			pairs = append(pairs, payload.Pair{Key: KeyResult, Value: result})
		} else if logged, terr := transform(name, opts.Transform, args, result); terr != nil {
			logger.Warn("transform failed", "error", terr)
			pairs = append(pairs,
				payload.Pair{Key: KeyResult, Value: result},
				payload.Pair{Key: KeyTransformError, Value: terr},
			)
		} else {
			pairs = append(pairs, payload.Pair{Key: KeyResult, Value: logged})
		}

		if _, serr := s.Emit(ctx, name, pairs); serr != nil {
			return result, serr
		}
		return result, nil
	}
}

// transform runs t, converting a returned error or a panic into a
// *errors.TransformError.
func transform[A, R any](name string, t func(A, R) (any, error), args A, result R) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewTransformError(name, fmt.Errorf("panic: %v", r))
		}
	}()
	out, err = t(args, result)
	if err != nil {
		return nil, errors.NewTransformError(name, err)
	}
	return out, nil
}

// FuncName returns the short name of fn, such as "main.fetchUser".
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "anonymous"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "anonymous"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
