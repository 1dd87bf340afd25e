// Package confloader provides configuration loading mechanism.
//
// This package implements a layered configuration loader on top of koanf.
// Each layer is a named map (from a YAML file, YAML bytes or a plain map);
// later layers shadow earlier ones key by key. Layers can be pushed and
// popped at runtime, and the merged view is rebuilt after every change.
//
// Priority (highest to lowest):
//
//  1. Environment variables (when enabled)
//  2. Layers, most recently pushed first
//
// Environment variables use the form PREFIX_SECTION_KEY; the first
// underscore after the prefix separates the section from the key, so
// DOCMIRROR_REMOTE_API_TOKEN maps to remote.api_token.
package confloader
