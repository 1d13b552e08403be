// Package device tracks the door controller and dispatches commands to it.
//
// The controller reports its address and mode through a heartbeat path; the
// locator serves cached addresses (and always-fresh mode reads), and the
// dispatcher issues open/toggle-mode/fetch-cache commands over HTTP using
// the privileged device key.
package device
