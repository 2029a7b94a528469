// Package anthropic is a small client for the Anthropic Messages API.
//
// Describe sends one user turn made of an image block and a text prompt and
// returns the text of the first content block. Requests that fail with 408,
// 429, 5xx or a network timeout are retried with exponential backoff, honouring
// Retry-After when the server sends it. Other failures return immediately.
package anthropic
