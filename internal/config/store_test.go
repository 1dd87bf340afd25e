package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/docmirror/internal/infra/lockfile"
)

// newTestStore creates a hermetic store rooted at a temp directory.
func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	base := []Option{
		WithWorkDir(dir),
		WithSearchPaths(),
		WithoutEnv(),
		WithSeeds(map[string]string{
			"home":            filepath.Join(dir, "home"),
			"xdg_config_home": filepath.Join(dir, "xdg", "config"),
			"xdg_data_home":   filepath.Join(dir, "xdg", "data"),
			"xdg_cache_home":  filepath.Join(dir, "xdg", "cache"),
			"xdg_state_home":  filepath.Join(dir, "xdg", "state"),
		}),
	}
	s, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s, dir
}

func TestStore_LoadDefaults(t *testing.T) {
	s, dir := newTestStore(t)
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]string{
		"var_dir":   filepath.Join(dir, "var"),
		"log_dir":   filepath.Join(dir, "var", "logs"),
		"data_dir":  filepath.Join(dir, "var", "data"),
		"etc_dir":   filepath.Join(dir, "var", "etc"),
		"cache_dir": filepath.Join(dir, "var", "cache"),
		"lock_file": filepath.Join(dir, "var", "docmirror.lck"),
		"pid_file":  filepath.Join(dir, "var", "docmirror.pid"),
	}
	if got := s.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
	if s.Layout() != "local" {
		t.Errorf("Layout() = %q, want local", s.Layout())
	}
	if s.ConfigFile() != "" {
		t.Errorf("ConfigFile() = %q, want empty", s.ConfigFile())
	}
	if got := s.Layers(); !reflect.DeepEqual(got, []string{LayerDefaults}) {
		t.Errorf("Layers() = %v", got)
	}

	for _, d := range []string{s.VarDir(), s.LogDir(), s.DataDir(), s.EtcDir(), s.CacheDir()} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", d, err)
		}
	}
	if _, err := os.Stat(filepath.Join(s.EtcDir(), FileName)); err != nil {
		t.Errorf("default user config not created: %v", err)
	}
}

func TestStore_WithoutCreatePaths(t *testing.T) {
	s, dir := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "var")); !os.IsNotExist(err) {
		t.Errorf("var_dir should not exist, stat err = %v", err)
	}
}

func TestStore_PathsAreAbsoluteAndResolved(t *testing.T) {
	s, _ := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := s.Push("rel", []byte("paths:\n  local:\n    var_dir: rel/var\n")); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	for k, v := range s.Paths() {
		if !filepath.IsAbs(v) {
			t.Errorf("%s = %q is not absolute", k, v)
		}
	}
	wd, _ := os.Getwd()
	if s.VarDir() != filepath.Join(wd, "rel", "var") {
		t.Errorf("VarDir() = %q", s.VarDir())
	}
}

func TestStore_PushPop(t *testing.T) {
	s, dir := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	before := s.Paths()

	other := filepath.Join(dir, "other")
	layer := []byte("paths:\n  local:\n    var_dir: " + other + "\n")
	if err := s.Push("test", layer); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if s.CacheDir() != filepath.Join(other, "cache") {
		t.Errorf("CacheDir() = %q, want under %q", s.CacheDir(), other)
	}
	if s.LockFile() != filepath.Join(other, "docmirror.lck") {
		t.Errorf("LockFile() = %q", s.LockFile())
	}

	if err := s.Pop("test"); err != nil {
		t.Fatalf("Pop() error = %v", err)
	}
	if got := s.Paths(); !reflect.DeepEqual(got, before) {
		t.Errorf("Paths() after pop = %v, want %v", got, before)
	}
}

func TestStore_PushValues(t *testing.T) {
	s, _ := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := s.PushValues("flags", map[string]any{"log.level": "warn"}); err != nil {
		t.Fatalf("PushValues() error = %v", err)
	}
	if got := s.Config().Log.Level; got != "warn" {
		t.Errorf("Log.Level = %q, want warn", got)
	}

	err := s.PushValues("flags", map[string]any{"log.level": "loud"})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("PushValues() error = %v, want ErrInvalidConfig", err)
	}
	if want := []string{LayerDefaults, "flags"}; !reflect.DeepEqual(s.Layers(), want) {
		t.Errorf("Layers() = %v, want %v", s.Layers(), want)
	}
	if got := s.Config().Log.Level; got != "warn" {
		t.Errorf("Log.Level after failed push = %q, want warn", got)
	}
}

func TestStore_PopMostRecent(t *testing.T) {
	s, dir := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := s.Push("x", []byte("paths:\n  local:\n    var_dir: "+a+"\n")); err != nil {
		t.Fatal(err)
	}
	if err := s.Push("x", []byte("paths:\n  local:\n    var_dir: "+b+"\n")); err != nil {
		t.Fatal(err)
	}
	if s.VarDir() != b {
		t.Fatalf("VarDir() = %q, want %q", s.VarDir(), b)
	}
	if err := s.Pop("x"); err != nil {
		t.Fatal(err)
	}
	if s.VarDir() != a {
		t.Errorf("VarDir() = %q, want %q", s.VarDir(), a)
	}
}

func TestStore_PopErrors(t *testing.T) {
	s, _ := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := s.Pop("missing"); !errors.Is(err, ErrUnknownLayer) {
		t.Errorf("Pop(missing) error = %v, want ErrUnknownLayer", err)
	}
	if err := s.Pop(LayerDefaults); !errors.Is(err, ErrUnknownLayer) {
		t.Errorf("Pop(defaults) error = %v, want ErrUnknownLayer", err)
	}
	if got := s.Layers(); len(got) != 1 {
		t.Errorf("Layers() = %v, want only defaults", got)
	}
}

func TestStore_UnknownLayout(t *testing.T) {
	s, _ := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	before := s.Paths()

	err := s.Push("bad", []byte("main:\n  layout: nope\n"))
	if !errors.Is(err, ErrUnknownLayout) {
		t.Fatalf("Push() error = %v, want ErrUnknownLayout", err)
	}
	if got := s.Paths(); !reflect.DeepEqual(got, before) {
		t.Errorf("Paths() changed after failed push")
	}
	if got := s.Layers(); len(got) != 1 {
		t.Errorf("failed layer was not rolled back: %v", got)
	}
	if s.Layout() != "local" {
		t.Errorf("Layout() = %q, want local", s.Layout())
	}
}

func TestStore_CycleDetected(t *testing.T) {
	s, _ := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	before := s.Paths()

	layer := []byte("paths:\n  local:\n    var_dir: $log_dir/x\n    log_dir: $var_dir/logs\n")
	err := s.Push("loop", layer)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Push() error = %v, want ErrCycleDetected", err)
	}
	if got := s.Paths(); !reflect.DeepEqual(got, before) {
		t.Errorf("Paths() changed after failed push")
	}
	if got := s.Layers(); len(got) != 1 {
		t.Errorf("failed layer was not rolled back: %v", got)
	}
}

func TestStore_InvalidValues(t *testing.T) {
	s, _ := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name  string
		layer string
	}{
		{"unknown engine", "storage:\n  engine: mongo\n"},
		{"unknown export format", "remote:\n  export_format: pdf\n"},
		{"unknown log level", "log:\n  level: loud\n"},
		{"malformed yaml", "paths: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Push("bad", []byte(tt.layer)); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Push() error = %v, want ErrInvalidConfig", err)
			}
			if got := s.Layers(); len(got) != 1 {
				t.Errorf("Layers() = %v", got)
			}
		})
	}
}

func TestStore_OverrideFile(t *testing.T) {
	s, dir := newTestStore(t, WithoutCreatePaths())
	cfgPath := filepath.Join(dir, "custom.yaml")
	content := "main:\n  layout: xdg\nlog:\n  level: debug\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := s.Load("custom.yaml"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.ConfigFile() != cfgPath {
		t.Errorf("ConfigFile() = %q, want %q", s.ConfigFile(), cfgPath)
	}
	if got, _ := s.Path("cfg_file"); got != cfgPath {
		t.Errorf("cfg_file = %q, want %q", got, cfgPath)
	}
	if s.DataDir() != filepath.Join(dir, "xdg", "data", "docmirror") {
		t.Errorf("DataDir() = %q", s.DataDir())
	}
	if s.LogDir() != filepath.Join(dir, "xdg", "state", "docmirror", "logs") {
		t.Errorf("LogDir() = %q", s.LogDir())
	}
	if s.Config().Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", s.Config().Log.Level)
	}
	if got := s.Layers(); !reflect.DeepEqual(got, []string{LayerDefaults, LayerUser}) {
		t.Errorf("Layers() = %v", got)
	}

	if err := s.Pop(LayerUser); err != nil {
		t.Fatalf("Pop(user) error = %v", err)
	}
	if _, ok := s.Path("cfg_file"); ok {
		t.Error("cfg_file should be gone once the user layer is popped")
	}
	if s.Layout() != "local" {
		t.Errorf("Layout() = %q, want local", s.Layout())
	}
}

func TestStore_OverrideFileMissing(t *testing.T) {
	s, _ := newTestStore(t, WithoutCreatePaths())
	if err := s.Load("does-not-exist.yaml"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
	if err := s.Push("x", nil); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Push() before load error = %v, want ErrNotLoaded", err)
	}
}

func TestStore_Discovery(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yaml")
	second := filepath.Join(dir, "second.yaml")
	if err := os.WriteFile(second, []byte("log:\n  format: json\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := New(WithWorkDir(dir), WithoutEnv(), WithoutCreatePaths(), WithSearchPaths(first, second))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.ConfigFile() != second {
		t.Errorf("ConfigFile() = %q, want %q", s.ConfigFile(), second)
	}
	if s.Config().Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", s.Config().Log.Format)
	}
}

func TestStore_DefaultSearchPaths(t *testing.T) {
	dir := t.TempDir()
	s, err := New(WithWorkDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	got := s.SearchPaths()
	if len(got) != 3 {
		t.Fatalf("SearchPaths() = %v", got)
	}
	if got[0] != filepath.Join(dir, FileName) {
		t.Errorf("first search path = %q", got[0])
	}
	if got[2] != "/etc/docmirror.yaml" {
		t.Errorf("last search path = %q", got[2])
	}
}

func TestStore_EnvLayer(t *testing.T) {
	t.Setenv("DOCMIRROR_MAIN_LAYOUT", "fhs")
	t.Setenv("DOCMIRROR_REMOTE_API_TOKEN", "secret-token")

	dir := t.TempDir()
	s, err := New(WithWorkDir(dir), WithSearchPaths(), WithoutCreatePaths())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Layout() != "fhs" {
		t.Errorf("Layout() = %q, want fhs", s.Layout())
	}
	if s.VarDir() != "/var/lib/docmirror" {
		t.Errorf("VarDir() = %q", s.VarDir())
	}
	if s.DataDir() != "/var/lib/docmirror/data" {
		t.Errorf("DataDir() = %q", s.DataDir())
	}
	if s.Config().Remote.APIToken != "secret-token" {
		t.Errorf("APIToken = %q", s.Config().Remote.APIToken)
	}

	// Env stays on top of pushed layers.
	if err := s.Push("layout", []byte("main:\n  layout: local\n")); err != nil {
		t.Fatal(err)
	}
	if s.Layout() != "fhs" {
		t.Errorf("Layout() = %q, want fhs", s.Layout())
	}
}

func TestStore_UserConfigCreatedOnce(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	target := filepath.Join(s.EtcDir(), FileName)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != string(userTemplate) {
		t.Error("user config should be written from the template")
	}

	if err := os.WriteFile(target, []byte("# edited\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Push("again", []byte("log:\n  level: warn\n")); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	data, _ = os.ReadFile(target)
	if string(data) != "# edited\n" {
		t.Errorf("existing user config was overwritten: %q", data)
	}
	if _, err := os.Stat(filepath.Join(s.VarDir(), lockName)); err != nil {
		t.Errorf("lock file should exist: %v", err)
	}
}

func TestStore_UserConfigWaitsForLock(t *testing.T) {
	s, dir := newTestStore(t, WithLockTimeout(50*time.Millisecond))

	lockPath := filepath.Join(dir, "var", lockName)
	release, err := lockfile.Acquire(context.Background(), lockPath)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := s.Load(""); err == nil {
		t.Fatal("Load() should fail while the configuration lock is held")
	}
	target := filepath.Join(dir, "var", "etc", FileName)
	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("user config written without the lock: %v", err)
	}

	if err := release(); err != nil {
		t.Fatal(err)
	}
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() after release error = %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("user config should exist after release: %v", err)
	}
}

func TestStore_LayoutMissingRequiredPaths(t *testing.T) {
	s, _ := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	layer := []byte("main:\n  layout: partial\npaths:\n  partial:\n    var_dir: /srv/dm\n    log_dir: $var_dir/logs\n")
	err := s.Push("partial", layer)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Push() error = %v, want ErrInvalidConfig", err)
	}
	for _, name := range []string{"data_dir", "etc_dir", "cache_dir", "lock_file", "pid_file"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should name %s", err.Error(), name)
		}
	}
	if s.Layout() != "local" || s.CacheDir() == "" {
		t.Errorf("store should keep the previous layout, got %q cache_dir=%q", s.Layout(), s.CacheDir())
	}
}

func TestStore_TypedConfig(t *testing.T) {
	s, _ := newTestStore(t, WithoutCreatePaths())
	if err := s.Load(""); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg := s.Config()
	if cfg.Remote.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Remote.Timeout)
	}
	if cfg.Storage.Engine != "badger" || cfg.Remote.ExportFormat != "markdown" {
		t.Errorf("Config() = %+v", cfg)
	}
	if s.Get("log.level") != "info" {
		t.Errorf("Get(log.level) = %v", s.Get("log.level"))
	}

	if err := s.Push("remote", []byte("remote:\n  timeout: 5s\n  rate_limit: 2.5\n")); err != nil {
		t.Fatal(err)
	}
	cfg = s.Config()
	if cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Remote.Timeout)
	}
	if cfg.Remote.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", cfg.Remote.RateLimit)
	}
}
