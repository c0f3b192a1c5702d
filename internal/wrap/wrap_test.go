package wrap

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/smollog/internal/callsite"
	"github.com/Iron-Ham/smollog/internal/errors"
	"github.com/Iron-Ham/smollog/internal/logging"
	"github.com/Iron-Ham/smollog/internal/record"
	"github.com/Iron-Ham/smollog/internal/session"
	"github.com/Iron-Ham/smollog/internal/store"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func fetchUser(_ context.Context, id int) (user, error) {
	return user{ID: id, Name: "ada"}, nil
}

func newTestSession(t *testing.T, st store.Store, diag *bytes.Buffer) *session.Session {
	t.Helper()
	logger := logging.NopLogger()
	if diag != nil {
		logger = logging.NewWriterLogger(diag, logging.LevelDebug)
	}
	s, err := session.New(session.Options{
		Persist:  true,
		Root:     "/logs",
		Fs:       afero.NewMemMapFs(),
		Store:    st,
		Resolver: callsite.None(),
		Clock:    func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) },
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("session.New() error: %v", err)
	}
	return s
}

func onlyRecord(t *testing.T, mem *store.MemoryStore) *record.Record {
	t.Helper()
	recs := mem.Records()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want exactly 1", len(recs))
	}
	return recs[0]
}

func TestWrap_Success(t *testing.T) {
	mem := store.NewMemoryStore()
	s := newTestSession(t, mem, nil)

	wrapped := Wrap(s, fetchUser, Options[int, user]{})
	got, err := wrapped(context.Background(), 7)
	if err != nil {
		t.Fatalf("wrapped() error: %v", err)
	}
	if got != (user{ID: 7, Name: "ada"}) {
		t.Errorf("wrapped() = %+v", got)
	}

	rec := onlyRecord(t, mem)
	if rec.Label != "wrap.fetchUser" {
		t.Errorf("Label = %q, want wrap.fetchUser", rec.Label)
	}
	want := `{"args":7,"result":{"id":7,"name":"ada"}}`
	if rec.Payload.Text() != want {
		t.Errorf("Payload = %s, want %s", rec.Payload.Text(), want)
	}
}

func TestWrap_Name(t *testing.T) {
	mem := store.NewMemoryStore()
	s := newTestSession(t, mem, nil)

	wrapped := Wrap(s, fetchUser, Options[int, user]{Name: "load user"})
	if _, err := wrapped(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if got := onlyRecord(t, mem).Label; got != "load user" {
		t.Errorf("Label = %q", got)
	}
}

func TestWrap_ErrorPropagatesUnchanged(t *testing.T) {
	mem := store.NewMemoryStore()
	s := newTestSession(t, mem, nil)

	sentinel := errors.New("upstream unavailable")
	wrapped := Wrap(s, func(context.Context, string) (int, error) {
		return 0, sentinel
	}, Options[string, int]{Name: "call"})

	_, err := wrapped(context.Background(), "q")
	if err != sentinel {
		t.Errorf("wrapped() error = %v, want the original error value", err)
	}

	rec := onlyRecord(t, mem)
	want := `{"args":"q","error":"upstream unavailable"}`
	if rec.Payload.Text() != want {
		t.Errorf("Payload = %s, want %s", rec.Payload.Text(), want)
	}
}

func TestWrap_Transform(t *testing.T) {
	mem := store.NewMemoryStore()
	s := newTestSession(t, mem, nil)

	wrapped := Wrap(s, fetchUser, Options[int, user]{
		Transform: func(id int, u user) (any, error) {
			return map[string]any{"name": u.Name}, nil
		},
	})
	got, err := wrapped(context.Background(), 3)
	if err != nil {
		t.Fatalf("wrapped() error: %v", err)
	}
	if got.ID != 3 {
		t.Errorf("transform leaked into result: %+v", got)
	}
	if p := onlyRecord(t, mem).Payload.Text(); p != `{"args":3,"result":{"name":"ada"}}` {
		t.Errorf("Payload = %s", p)
	}
}

func TestWrap_TransformFailureIsRecovered(t *testing.T) {
	tests := []struct {
		name      string
		transform func(int, user) (any, error)
		wantMsg   string
	}{
		{
			name: "returns error",
			transform: func(int, user) (any, error) {
				return nil, errors.New("bad shape")
			},
			wantMsg: "bad shape",
		},
		{
			name: "panics",
			transform: func(int, user) (any, error) {
				panic("nil map")
			},
			wantMsg: "panic: nil map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemoryStore()
			var diag bytes.Buffer
			s := newTestSession(t, mem, &diag)

			wrapped := Wrap(s, fetchUser, Options[int, user]{Name: "fetch", Transform: tt.transform})
			got, err := wrapped(context.Background(), 9)
			if err != nil {
				t.Fatalf("transform failure escaped to caller: %v", err)
			}
			if got.ID != 9 {
				t.Errorf("wrapped() = %+v, want original result", got)
			}

			rec := onlyRecord(t, mem)
			result, ok := rec.Payload.Get(KeyResult)
			if !ok || result.Text() != `{"id":9,"name":"ada"}` {
				t.Errorf("untransformed result not logged: %s", rec.Payload.Text())
			}
			terr, ok := rec.Payload.Get(KeyTransformError)
			if !ok || !strings.Contains(terr.Text(), tt.wantMsg) {
				t.Errorf("transformError = %s, want %q", terr.Text(), tt.wantMsg)
			}
			if !strings.Contains(diag.String(), `"msg":"transform failed"`) {
				t.Errorf("missing WARN diagnostic: %s", diag.String())
			}
		})
	}
}

func TestWrap_PanicIsRecordedAndRaised(t *testing.T) {
	mem := store.NewMemoryStore()
	s := newTestSession(t, mem, nil)

	wrapped := Wrap(s, func(context.Context, int) (int, error) {
		panic("index out of range")
	}, Options[int, int]{Name: "explode"})

	defer func() {
		r := recover()
		if r != "index out of range" {
			t.Errorf("recovered %v, want original panic value", r)
		}
		rec := onlyRecord(t, mem)
		if rec.Payload.Text() != `{"args":1,"panic":"index out of range"}` {
			t.Errorf("Payload = %s", rec.Payload.Text())
		}
	}()
	_, _ = wrapped(context.Background(), 1)
	t.Error("panic was swallowed")
}

func TestWrap_GoexitIsRecordedAndContinues(t *testing.T) {
	mem := store.NewMemoryStore()
	s := newTestSession(t, mem, nil)

	wrapped := Wrap(s, func(context.Context, int) (int, error) {
		runtime.Goexit()
		return 0, nil
	}, Options[int, int]{Name: "bail"})

	var (
		recovered any
		returned  bool
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { recovered = recover() }()
		_, _ = wrapped(context.Background(), 1)
		returned = true
	}()
	<-done

	if recovered != nil {
		t.Errorf("recovered %v, want the goroutine to exit without panicking", recovered)
	}
	if returned {
		t.Error("wrapped() returned after runtime.Goexit")
	}
	if got := onlyRecord(t, mem).Payload.Text(); got != `{"args":1,"exited":true}` {
		t.Errorf("Payload = %s", got)
	}
}

func TestWrap_StorageFailure(t *testing.T) {
	boom := errors.New("disk full")
	failing := store.Func(func(context.Context, *record.Record) error { return boom })

	t.Run("success path returns storage error", func(t *testing.T) {
		s := newTestSession(t, failing, nil)
		got, err := Wrap(s, fetchUser, Options[int, user]{})(context.Background(), 2)
		if got.ID != 2 {
			t.Errorf("result dropped: %+v", got)
		}
		if !errors.Is(err, errors.ErrStorageFailed) {
			t.Errorf("expected ErrStorageFailed, got %v", err)
		}
	})

	t.Run("failure path keeps original error", func(t *testing.T) {
		var diag bytes.Buffer
		s := newTestSession(t, failing, &diag)
		sentinel := errors.New("original")
		_, err := Wrap(s, func(context.Context, int) (int, error) {
			return 0, sentinel
		}, Options[int, int]{})(context.Background(), 1)
		if err != sentinel {
			t.Errorf("err = %v, want original", err)
		}
		if !strings.Contains(diag.String(), "failed to record failed call") {
			t.Errorf("storage failure not logged: %s", diag.String())
		}
	})
}

func TestFuncName(t *testing.T) {
	if got := FuncName(fetchUser); got != "wrap.fetchUser" {
		t.Errorf("FuncName() = %q", got)
	}
	if got := FuncName(nil); got != "anonymous" {
		t.Errorf("FuncName(nil) = %q", got)
	}
	var nilFn func()
	if got := FuncName(nilFn); got != "anonymous" {
		t.Errorf("FuncName(nil func) = %q", got)
	}
	if got := FuncName(42); got != "anonymous" {
		t.Errorf("FuncName(42) = %q", got)
	}
}
