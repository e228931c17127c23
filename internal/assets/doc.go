// Package assets turns local file paths into restricted read-only locators
// and serves the referenced images to the rendering layer. Unresolvable
// locators degrade to a placeholder image; they never fail the renderer.
package assets
