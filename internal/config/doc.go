// Package config provides the docmirror configuration store.
//
// Configuration is a stack of named YAML layers:
//
//   - default.yaml: the embedded schema and defaults
//   - user: the override file (docmirror.yaml), when one is found
//   - any layer pushed at runtime with Store.Push
//   - DOCMIRROR_* environment variables on top
//
// After every change the store re-derives the resolved path set from the
// active layout (main.layout selects paths.<layout>) via pkg/pathexpand.
//
//   - spec.go: Config struct definition
//   - default.go: default values and embedded schema
//   - store.go: layered Store and path derivation
//   - verify.go: business validation
//   - sanitize.go: log sanitization (hide sensitive values)
package config
