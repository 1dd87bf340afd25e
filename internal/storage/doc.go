// Package storage provides the persistent catalog for docmirror.
//
// The catalog keeps one JSON record per document and per folder in an
// embedded key-value engine:
//
//   - kv.go: KVEngine interface and engine selection
//   - badger.go: Badger v3 engine (default)
//   - bolt.go: Bolt engine (single file, no background GC)
//   - catalog.go: document and folder repositories over a KVEngine
//
// Key layout:
//
//	doc/<remote_id>   -> domain.Document
//	folder/<id>       -> domain.Folder
package storage
