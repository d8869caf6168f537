// Package overlap holds the overlap record model, the priority scoring engine
// and the candidate selection used to decide which overlap is escalated next.
package overlap
