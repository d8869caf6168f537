// Package ratelimit provides per-client-IP token-bucket rate limiting
// middleware for the Gin HTTP server, with automatic stale-entry cleanup.
package ratelimit
