// Package dedupe guards against repeated form submissions by remembering
// accepted submission tokens for a configurable window.
package dedupe
