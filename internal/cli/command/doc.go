// Package command defines the docmirror command line.
//
// The application is built with urfave/cli/v2. The Before hook loads the
// layered configuration once and sets up logging; commands that touch the
// catalog or the remote store open them through the Env kept in the app
// metadata, and the After hook closes what was opened.
package command
