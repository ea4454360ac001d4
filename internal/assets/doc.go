// Package assets serves the stylesheet and other static files embedded in the
// binary for the chat pages.
package assets
