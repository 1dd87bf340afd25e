package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/yndnr/docmirror/internal/infra/confloader"
	"github.com/yndnr/docmirror/internal/infra/lockfile"
	"github.com/yndnr/docmirror/pkg/pathexpand"
)

// DefaultLockTimeout bounds the wait for the first-run configuration lock.
const DefaultLockTimeout = 10 * time.Second

// Store holds the layered configuration and the paths derived from it.
//
// A Store is not safe for concurrent use.
type Store struct {
	loader *confloader.Loader

	workDir     string
	createPaths bool
	useEnv      bool
	envPrefix   string
	searchSet   bool
	searchPaths []string
	extraSeeds  map[string]string
	lockTimeout time.Duration

	cfgFile string
	paths   map[string]string
	cfg     *Config
}

// Option is a function that configures the Store.
type Option func(*Store)

// WithoutCreatePaths stops the store from creating directories and the
// default user configuration.
func WithoutCreatePaths() Option {
	return func(s *Store) {
		s.createPaths = false
	}
}

// WithWorkDir sets the directory used for the cwd seed and for relative
// override paths. Defaults to the process working directory.
func WithWorkDir(dir string) Option {
	return func(s *Store) {
		s.workDir = dir
	}
}

// WithSearchPaths replaces the override discovery list. Passing no paths
// disables discovery.
func WithSearchPaths(paths ...string) Option {
	return func(s *Store) {
		s.searchSet = true
		s.searchPaths = append([]string(nil), paths...)
	}
}

// WithSeeds adds or replaces expansion seeds.
func WithSeeds(seeds map[string]string) Option {
	return func(s *Store) {
		for k, v := range seeds {
			s.extraSeeds[k] = v
		}
	}
}

// WithoutEnv ignores DOCMIRROR_* environment variables.
func WithoutEnv() Option {
	return func(s *Store) {
		s.useEnv = false
	}
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(s *Store) {
		s.envPrefix = prefix
	}
}

// WithLockTimeout bounds the wait for the first-run configuration lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// New creates an empty Store. Call Load before using it.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		createPaths: true,
		useEnv:      true,
		envPrefix:   confloader.DefaultEnvPrefix,
		extraSeeds:  make(map[string]string),
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		s.workDir = wd
	}
	wd, err := filepath.Abs(s.workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	s.workDir = wd

	return s, nil
}

// Open creates a Store and loads it.
func Open(overridePath string, opts ...Option) (*Store, error) {
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Load(overridePath); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the layer stack with the defaults plus the override file.
//
// An empty overridePath searches SearchPaths and uses the first file that
// exists; finding none means defaults only. On failure the store keeps its
// previous state.
func (s *Store) Load(overridePath string) error {
	path, err := s.resolveOverride(overridePath)
	if err != nil {
		return err
	}

	loader := confloader.NewLoader(s.loaderOptions()...)
	if err := loader.PushBytes(LayerDefaults, defaultSchema); err != nil {
		return ErrInvalidConfig.WithCause(err)
	}
	if path != "" {
		if err := loader.PushFile(LayerUser, path); err != nil {
			return ErrInvalidConfig.WithDetails(path).WithCause(err)
		}
	}

	prevLoader, prevFile := s.loader, s.cfgFile
	s.loader, s.cfgFile = loader, path
	if err := s.derive(); err != nil {
		s.loader, s.cfgFile = prevLoader, prevFile
		return err
	}
	return nil
}

// Push adds a named YAML layer on top of the stack.
func (s *Store) Push(name string, content []byte) error {
	if s.loader == nil {
		return ErrNotLoaded
	}

	snap := s.loader.Snapshot()
	if err := s.loader.PushBytes(name, content); err != nil {
		return ErrInvalidConfig.WithDetails(name).WithCause(err)
	}
	if err := s.derive(); err != nil {
		return s.rollback(snap, err)
	}
	return nil
}

// PushValues adds a named layer built from values keyed by dotted paths,
// such as "log.level".
func (s *Store) PushValues(name string, values map[string]any) error {
	if s.loader == nil {
		return ErrNotLoaded
	}

	snap := s.loader.Snapshot()
	if err := s.loader.PushMap(name, values); err != nil {
		return ErrInvalidConfig.WithDetails(name).WithCause(err)
	}
	if err := s.derive(); err != nil {
		return s.rollback(snap, err)
	}
	return nil
}

// Pop removes the most recent layer named name.
func (s *Store) Pop(name string) error {
	if s.loader == nil {
		return ErrNotLoaded
	}
	if name == LayerDefaults && s.countLayer(name) <= 1 {
		return ErrUnknownLayer.WithDetails("the defaults layer cannot be removed")
	}

	snap := s.loader.Snapshot()
	if err := s.loader.Pop(name); err != nil {
		if errors.Is(err, confloader.ErrLayerNotFound) {
			return ErrUnknownLayer.WithDetails(name)
		}
		return err
	}
	if err := s.derive(); err != nil {
		return s.rollback(snap, err)
	}
	return nil
}

func (s *Store) rollback(snap confloader.Snapshot, cause error) error {
	if err := s.loader.Restore(snap); err != nil {
		return errors.Join(cause, fmt.Errorf("restore layers: %w", err))
	}
	return cause
}

// RequiredPaths are the names every layout must define.
var RequiredPaths = []string{
	"var_dir", "log_dir", "data_dir", "etc_dir", "cache_dir", "lock_file", "pid_file",
}

// derive rebuilds the resolved path set and the typed config from the
// current stack. Nothing is committed unless every step succeeds.
func (s *Store) derive() error {
	layout := s.loader.GetString("main.layout")
	section := "paths." + layout
	names := s.loader.MapKeys(section)
	if layout == "" || len(names) == 0 {
		return ErrUnknownLayout.WithDetails(fmt.Sprintf("%q", layout))
	}

	templates := make(map[string]string, len(names)+1)
	for _, name := range names {
		templates[name] = s.loader.GetString(section + "." + name)
	}
	var missing []string
	for _, name := range RequiredPaths {
		if templates[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return ErrInvalidConfig.WithDetails(fmt.Sprintf("layout %q is missing %s", layout, strings.Join(missing, ", ")))
	}
	if s.cfgFile != "" && s.countLayer(LayerUser) > 0 {
		if _, ok := templates["cfg_file"]; !ok {
			templates["cfg_file"] = s.cfgFile
		}
	}

	paths, err := pathexpand.Expand(templates, s.Seeds())
	if err != nil {
		return err
	}

	cfg := Default()
	if err := s.loader.Unmarshal("", cfg); err != nil {
		return ErrInvalidConfig.WithCause(err)
	}
	if err := Verify(cfg); err != nil {
		return ErrInvalidConfig.WithCause(err)
	}

	if s.createPaths {
		if err := makeDirs(paths); err != nil {
			return err
		}
		if err := s.ensureUserConfig(paths); err != nil {
			return err
		}
	}

	s.paths = paths
	s.cfg = cfg
	return nil
}

// Seeds returns the values path templates may reference besides each other.
func (s *Store) Seeds() map[string]string {
	seeds := map[string]string{
		"cwd":             s.workDir,
		"home":            xdg.Home,
		"xdg_config_home": xdg.ConfigHome,
		"xdg_data_home":   xdg.DataHome,
		"xdg_cache_home":  xdg.CacheHome,
		"xdg_state_home":  xdg.StateHome,
	}
	for k, v := range s.extraSeeds {
		seeds[k] = v
	}
	return seeds
}

// SearchPaths returns the override files Load tries, in order.
func (s *Store) SearchPaths() []string {
	if s.searchSet {
		return append([]string(nil), s.searchPaths...)
	}
	return []string{
		filepath.Join(s.workDir, FileName),
		filepath.Join(xdg.ConfigHome, "docmirror", FileName),
		filepath.Join("/etc", FileName),
	}
}

func (s *Store) resolveOverride(path string) (string, error) {
	if path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.workDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return "", ErrInvalidConfig.WithDetails(path).WithCause(err)
		}
		return path, nil
	}

	for _, candidate := range s.SearchPaths() {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

func (s *Store) loaderOptions() []confloader.Option {
	opts := []confloader.Option{confloader.WithEnvPrefix(s.envPrefix)}
	if s.useEnv {
		opts = append(opts, confloader.WithEnv())
	}
	return opts
}

func (s *Store) countLayer(name string) int {
	n := 0
	for _, l := range s.loader.Layers() {
		if l == name {
			n++
		}
	}
	return n
}

// makeDirs creates every resolved *_dir.
func makeDirs(paths map[string]string) error {
	keys := make([]string, 0, len(paths))
	for k := range paths {
		if strings.HasSuffix(k, "_dir") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := os.MkdirAll(paths[k], 0o750); err != nil {
			return fmt.Errorf("create %s: %w", k, err)
		}
	}
	return nil
}

// ensureUserConfig writes <etc_dir>/docmirror.yaml from the commented
// template if it does not exist yet. The check and the write happen under
// <var_dir>/docmirror-cfg.lck.
func (s *Store) ensureUserConfig(paths map[string]string) error {
	varDir, ok := paths["var_dir"]
	if !ok {
		return nil
	}
	etcDir, ok := paths["etc_dir"]
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	return lockfile.With(ctx, filepath.Join(varDir, lockName), func() error {
		target := filepath.Join(etcDir, FileName)
		_, err := os.Stat(target)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", target, err)
		}
		if err := os.WriteFile(target, userTemplate, 0o640); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		return nil
	})
}

// Get returns a raw value from the merged configuration.
func (s *Store) Get(key string) any {
	if s.loader == nil {
		return nil
	}
	return s.loader.Get(key)
}

// String returns a string value from the merged configuration.
func (s *Store) String(key string) string {
	if s.loader == nil {
		return ""
	}
	return s.loader.GetString(key)
}

// Layout returns the active path layout name.
func (s *Store) Layout() string {
	return s.String("main.layout")
}

// Layers returns the layer names from bottom to top.
func (s *Store) Layers() []string {
	if s.loader == nil {
		return nil
	}
	return s.loader.Layers()
}

// Config returns a copy of the typed configuration.
func (s *Store) Config() *Config {
	if s.cfg == nil {
		return Default()
	}
	c := *s.cfg
	return &c
}

// ConfigFile returns the loaded override file, or "" if none was loaded.
func (s *Store) ConfigFile() string {
	return s.cfgFile
}

// WorkDir returns the directory used for the cwd seed.
func (s *Store) WorkDir() string {
	return s.workDir
}

// Paths returns a copy of the resolved path set.
func (s *Store) Paths() map[string]string {
	out := make(map[string]string, len(s.paths))
	for k, v := range s.paths {
		out[k] = v
	}
	return out
}

// Path returns one resolved path by logical name.
func (s *Store) Path(name string) (string, bool) {
	p, ok := s.paths[name]
	return p, ok
}

// VarDir returns the resolved var_dir.
func (s *Store) VarDir() string { return s.paths["var_dir"] }

// LogDir returns the resolved log_dir.
func (s *Store) LogDir() string { return s.paths["log_dir"] }

// DataDir returns the resolved data_dir.
func (s *Store) DataDir() string { return s.paths["data_dir"] }

// EtcDir returns the resolved etc_dir.
func (s *Store) EtcDir() string { return s.paths["etc_dir"] }

// CacheDir returns the resolved cache_dir.
func (s *Store) CacheDir() string { return s.paths["cache_dir"] }

// LockFile returns the resolved lock_file.
func (s *Store) LockFile() string { return s.paths["lock_file"] }

// PidFile returns the resolved pid_file.
func (s *Store) PidFile() string { return s.paths["pid_file"] }
