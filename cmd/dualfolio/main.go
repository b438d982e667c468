// Package main provides the dualfolio CLI: it serves the dual-persona
// portfolio API and inspects personas, switch state and contact messages.
package main

func main() {
	Execute()
}
