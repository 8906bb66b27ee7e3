// Package api defines the wire types of the daemon control API and the HTTP
// client the CLI uses to talk to a running daemon.
package api
