// Package escalation implements the single-flight overlap escalation engine:
// the resolution tracker, the controller deciding which overlap escalates
// next, and the runner walking the team hierarchy with timed messages until
// the overlap is resolved or every tier has been notified.
package escalation
