package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/clustermap/pkg/errors"
	"github.com/matzehuels/clustermap/pkg/observability"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}
	if err := s.Set(ctx, KeyViewport, []byte(`{"zoom":2}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, KeyViewport)
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if string(got) != `{"zoom":2}` {
		t.Errorf("Get = %s", got)
	}
	if err := s.Set(ctx, KeyViewport, []byte(`{"zoom":3}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, _ = s.Get(ctx, KeyViewport)
	if string(got) != `{"zoom":3}` {
		t.Errorf("after overwrite Get = %s", got)
	}
	if err := s.Delete(ctx, KeyViewport); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, KeyViewport); ok {
		t.Error("key still present after Delete")
	}
	if err := s.Delete(ctx, KeyViewport); err != nil {
		t.Errorf("Delete(missing): %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exercise(t, s)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf)
	buf[0] = 'x'
	got, _, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller buffer: %s", got)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, s)
}

func TestFileStoreCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := s.path(KeyExpand)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, ok, err := s.Get(ctx, KeyExpand)
	if err != nil || ok {
		t.Fatalf("Get(corrupt) = ok %v, err %v", ok, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry was not removed")
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exercise(t, s)
}

func TestSQLiteStorePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, KeyExpand, []byte("{}")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok, err := s.Get(ctx, KeyExpand); err != nil || !ok {
		t.Fatalf("Get after reopen = ok %v, err %v", ok, err)
	}
}

func TestNullStore(t *testing.T) {
	ctx := context.Background()
	s := NewNullStore()
	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("NullStore stored a value")
	}
}

func TestScoped(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	a := Scoped(inner, "a:")
	b := Scoped(inner, "b:")

	_ = a.Set(ctx, KeyViewport, []byte("A"))
	_ = b.Set(ctx, KeyViewport, []byte("B"))

	got, _, _ := a.Get(ctx, KeyViewport)
	if string(got) != "A" {
		t.Errorf("a.Get = %s", got)
	}
	raw, ok, _ := inner.Get(ctx, "b:viewport")
	if !ok || string(raw) != "B" {
		t.Errorf("inner b:viewport = %s, %v", raw, ok)
	}
	if Scoped(inner, "") != Store(inner) {
		t.Error("empty prefix should return inner store")
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		opts    Options
		code    errors.Code
		wantErr bool
	}{
		{name: "file", opts: Options{Backend: BackendFile, Dir: dir}},
		{name: "default is file", opts: Options{Dir: dir}},
		{name: "sqlite in dir", opts: Options{Backend: BackendSQLite, Dir: dir}},
		{name: "memory with prefix", opts: Options{Backend: BackendMemory, Prefix: "map:"}},
		{name: "none", opts: Options{Backend: BackendNone}},
		{name: "redis without addr", opts: Options{Backend: BackendRedis}, wantErr: true, code: errors.ErrCodeInvalidConfig},
		{name: "file without dir", opts: Options{Backend: BackendFile}, wantErr: true, code: errors.ErrCodeInvalidConfig},
		{name: "bad prefix", opts: Options{Backend: BackendMemory, Prefix: "a b"}, wantErr: true, code: errors.ErrCodeInvalidConfig},
		{name: "unknown", opts: Options{Backend: "etcd"}, wantErr: true, code: errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, tt.code) {
					t.Errorf("code = %s, want %s", errors.GetCode(err), tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer s.Close()
			if tt.opts.Backend != BackendNone {
				exercise(t, s)
			}
		})
	}
}

func TestRedisStoreUnreachableTripsBreaker(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(RedisOptions{
		Addr:        "127.0.0.1:1",
		Timeout:     200 * time.Millisecond,
		MinRequests: 2,
		OpenTimeout: time.Minute,
	})
	defer s.Close()

	for i := 0; i < 3; i++ {
		_, _, err := s.Get(ctx, KeyViewport)
		if err == nil {
			t.Fatal("expected error from unreachable redis")
		}
		if !errors.Is(err, errors.ErrCodeStoreUnavailable) {
			t.Errorf("code = %s, want STORE_UNAVAILABLE", errors.GetCode(err))
		}
	}
	if s.State() != "open" {
		t.Errorf("breaker state = %s, want open", s.State())
	}
}

func TestRedisStoreLive(t *testing.T) {
	addr := os.Getenv("CLUSTERMAP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CLUSTERMAP_TEST_REDIS_ADDR not set")
	}
	s := NewRedisStore(RedisOptions{Addr: addr})
	defer s.Close()
	exercise(t, Scoped(s, "clustermap-test:"))
}

func TestHash(t *testing.T) {
	if Hash([]byte("a")) != Hash([]byte("a")) {
		t.Error("Hash not deterministic")
	}
	if len(Hash([]byte("a"))) != 64 {
		t.Error("Hash length != 64")
	}
}

type recordingHooks struct {
	reads, writes int
	lastBackend   string
}

func (r *recordingHooks) OnStoreRead(_ context.Context, backend string, _ bool, _ error) {
	r.reads++
	r.lastBackend = backend
}

func (r *recordingHooks) OnStoreWrite(_ context.Context, backend string, _ int, _ error) {
	r.writes++
	r.lastBackend = backend
}

func TestInstrument(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetStoreHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	s := Instrument(NewMemoryStore(), BackendMemory)
	_ = s.Set(ctx, "k", []byte("v"))
	_, _, _ = s.Get(ctx, "k")
	_, _, _ = s.Get(ctx, "other")
	_ = s.Delete(ctx, "k")

	if hooks.reads != 2 || hooks.writes != 1 || hooks.lastBackend != BackendMemory {
		t.Errorf("hooks = %+v", hooks)
	}
}
