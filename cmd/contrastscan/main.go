// Package main provides the entry point for the contrastscan CLI.
//
// contrastscan renders web pages and reports text whose color contrast
// does not meet WCAG 2.x AA or AAA.
//
// Usage:
//
//	contrastscan scan https://example.com/
//	contrastscan compare https://example.com/
//	contrastscan mcp
//
// See --help for all available options.
package main

func main() {
	Execute()
}
