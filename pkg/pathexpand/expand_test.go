package pathexpand

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestExpand_ChainThroughSeed(t *testing.T) {
	templates := map[string]string{
		"data_dir": "$var_dir/data",
		"var_dir":  "$cwd/var",
	}
	seeds := map[string]string{"cwd": "/home/u"}

	got, err := Expand(templates, seeds)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	if got["data_dir"] != "/home/u/var/data" {
		t.Errorf("data_dir = %q, want %q", got["data_dir"], "/home/u/var/data")
	}
	if got["var_dir"] != "/home/u/var" {
		t.Errorf("var_dir = %q, want %q", got["var_dir"], "/home/u/var")
	}
	if _, ok := got["cwd"]; ok {
		t.Error("seed cwd should not be part of the result")
	}
}

func TestExpand_BracedReferences(t *testing.T) {
	templates := map[string]string{
		"log_dir":   "${var_dir}/logs",
		"lock_file": "${var_dir}/run.lck",
		"var_dir":   "/srv/${name}",
	}
	seeds := map[string]string{"name": "mirror"}

	got, err := Expand(templates, seeds)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	want := map[string]string{
		"log_dir":   "/srv/mirror/logs",
		"lock_file": "/srv/mirror/run.lck",
		"var_dir":   "/srv/mirror",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expand() = %v, want %v", got, want)
	}
}

func TestExpand_TwoKeyCycle(t *testing.T) {
	_, err := Expand(map[string]string{"a": "$b", "b": "$a"}, nil)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Expand() error = %v, want ErrCycleDetected", err)
	}

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("error should be a *CycleError, got %T", err)
	}
	if keys := cycle.Keys(); !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
	if !strings.Contains(err.Error(), "a: $") || !strings.Contains(err.Error(), "b: $") {
		t.Errorf("error message should list partial values, got %q", err.Error())
	}
}

func TestExpand_SelfReference(t *testing.T) {
	tests := []struct {
		name      string
		templates map[string]string
	}{
		{"direct", map[string]string{"a": "$a"}},
		{"growing", map[string]string{"a": "x/$a"}},
		{"indirect growing", map[string]string{"a": "x/$b", "b": "y/$c", "c": "$a"}},
		{"cycle behind chain", map[string]string{"top": "$mid/t", "mid": "$loop", "loop": "$loop2", "loop2": "$loop"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(tt.templates, map[string]string{"cwd": "/tmp"})
			if !errors.Is(err, ErrCycleDetected) {
				t.Errorf("Expand() error = %v, want ErrCycleDetected", err)
			}
		})
	}
}

func TestExpand_UnknownReference(t *testing.T) {
	_, err := Expand(map[string]string{"data_dir": "$nowhere/data"}, nil)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Expand() error = %v, want ErrCycleDetected", err)
	}

	var cycle *CycleError
	errors.As(err, &cycle)
	if len(cycle.Pending) != 1 || cycle.Pending[0].Value != "$nowhere/data" {
		t.Errorf("Pending = %+v", cycle.Pending)
	}
}

func TestExpand_LongChainPasses(t *testing.T) {
	// k00 -> k01 -> ... -> k29 -> seed, declared so that sorted order runs
	// against the reference direction.
	const depth = 30
	templates := make(map[string]string, depth)
	for i := 0; i < depth; i++ {
		next := "$root"
		if i+1 < depth {
			next = fmt.Sprintf("$k%02d", i+1)
		}
		templates[fmt.Sprintf("k%02d", i)] = next + "/x"
	}

	res, err := ExpandResult(templates, map[string]string{"root": "/r"})
	if err != nil {
		t.Fatalf("ExpandResult() error = %v", err)
	}

	if res.Passes != depth {
		t.Errorf("Passes = %d, want %d", res.Passes, depth)
	}
	want := "/r" + strings.Repeat("/x", depth)
	if res.Paths["k00"] != want {
		t.Errorf("k00 = %q, want %q", res.Paths["k00"], want)
	}
}

func TestExpand_PassesFollowDeepestChain(t *testing.T) {
	tests := []struct {
		name      string
		templates map[string]string
		want      int
	}{
		{"seed only", map[string]string{"var_dir": "$cwd/var"}, 1},
		{"literal", map[string]string{"var_dir": "/var"}, 1},
		{"two levels", map[string]string{"var_dir": "$cwd/var", "log_dir": "$var_dir/logs"}, 2},
		{"diamond", map[string]string{
			"var_dir":  "$cwd/var",
			"data_dir": "$var_dir/data",
			"etc_dir":  "$var_dir/etc",
			"cfg":      "$data_dir/$etc_dir",
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ExpandResult(tt.templates, map[string]string{"cwd": "/w"})
			if err != nil {
				t.Fatalf("ExpandResult() error = %v", err)
			}
			if res.Passes != tt.want {
				t.Errorf("Passes = %d, want %d", res.Passes, tt.want)
			}
		})
	}
}

func TestExpand_CycleKeepsResolvedParts(t *testing.T) {
	_, err := Expand(map[string]string{"a": "$x/$root", "x": "$a"}, map[string]string{"root": "/r"})

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Expand() error = %v, want *CycleError", err)
	}
	want := []Unresolved{{Key: "a", Value: "$x//r"}, {Key: "x", Value: "$a"}}
	if !reflect.DeepEqual(cycle.Pending, want) {
		t.Errorf("Pending = %+v, want %+v", cycle.Pending, want)
	}
}

func TestExpand_RelativeBecomesAbsolute(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	got, err := Expand(map[string]string{"cache_dir": "var/cache"}, nil)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}

	want := filepath.Join(wd, "var", "cache")
	if got["cache_dir"] != want {
		t.Errorf("cache_dir = %q, want %q", got["cache_dir"], want)
	}
	for k, v := range got {
		if !filepath.IsAbs(v) {
			t.Errorf("%s = %q is not absolute", k, v)
		}
	}
}

func TestExpand_Idempotent(t *testing.T) {
	templates := map[string]string{
		"var_dir":   "$cwd/var",
		"cache_dir": "$var_dir/cache",
	}
	seeds := map[string]string{"cwd": "/opt/app"}

	first, err := Expand(templates, seeds)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Expand(templates, seeds)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ: %v vs %v", first, second)
	}
	if templates["cache_dir"] != "$var_dir/cache" {
		t.Error("templates map was modified")
	}
	if len(seeds) != 1 || seeds["cwd"] != "/opt/app" {
		t.Error("seeds map was modified")
	}
}

func TestExpand_TemplateShadowsSeed(t *testing.T) {
	got, err := Expand(
		map[string]string{"var_dir": "/custom/var", "log_dir": "$var_dir/log"},
		map[string]string{"var_dir": "/seed/var"},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got["log_dir"] != "/custom/var/log" {
		t.Errorf("log_dir = %q, want %q", got["log_dir"], "/custom/var/log")
	}
}

func TestExpand_Empty(t *testing.T) {
	got, err := Expand(nil, nil)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expand() = %v, want empty", got)
	}
}

func TestHasReference(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"/plain/path", false},
		{"$var_dir/x", true},
		{"${var_dir}/x", true},
		{"/price/$5", false},
		{"/a$", false},
	}

	for _, tt := range tests {
		if got := HasReference(tt.in); got != tt.want {
			t.Errorf("HasReference(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
