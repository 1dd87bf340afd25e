// Package pathexpand resolves path templates that reference each other.
//
// A template is a plain string that may contain $name or ${name}
// references to other templates or to seed values:
//
//	var_dir:  $cwd/var
//	data_dir: $var_dir/data
//
// Expansion is a fixed-point substitution. Every pass rewrites each value
// using only the values the previous pass left without references, so a
// key resolves at the pass equal to the depth of its reference chain. Expansion stops when no
// reference is left, or fails with ErrCycleDetected when a pass leaves as
// many unresolved keys as the one before it.
//
// Unknown references (names with neither a template nor a seed) never
// resolve and are reported the same way as cycles.
package pathexpand
