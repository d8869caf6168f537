// Package client is the typed HTTP client overlapctl uses to talk to the
// overlapd REST API.
package client
