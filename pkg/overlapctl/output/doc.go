// Package output renders overlapctl results as tables, JSON or YAML.
package output
