// Package domain defines the core domain models for docmirror.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Document: a mirrored remote document and its tracked version
//   - Folder: a remote folder a document may belong to
//   - Errors: domain-specific error definitions
package domain
