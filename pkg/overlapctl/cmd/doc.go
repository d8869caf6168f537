// Package cmd implements the overlapctl command tree.
package cmd
