// Package cli defines the command-line flags of the overlapd server binary.
// Every flag can also be set through an environment variable.
package cli
