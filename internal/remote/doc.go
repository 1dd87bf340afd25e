// Package remote talks to the remote document store.
//
// Store is the narrow interface the sync engine depends on. Client
// implements it over the Dropbox Paper HTTP API:
//
//	POST /2/paper/docs/list            first page of document ids
//	POST /2/paper/docs/list/continue   next page, by cursor
//	POST /2/paper/docs/download        content; metadata in a response header
//	POST /2/paper/docs/get_folder_info folders a document belongs to
//
// Transport errors and 5xx/429 responses are retried by go-retryablehttp.
// Requests are paced by a token bucket limiter.
package remote
