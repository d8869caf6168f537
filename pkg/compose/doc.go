// Package compose turns an escalation step into message text, either by
// prompting the Gemini API or by rendering a built-in template.
package compose
