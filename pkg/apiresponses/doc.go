// Package apiresponses provides the standardized JSON response helpers
// shared by the HTTP controllers and the middleware in api and ratelimit.
package apiresponses
