// Package main provides the entry point for the plant tracker CLI.
//
// The tracker analyzes time-stamped photographs of cultured plants:
// it decodes the QR identifier, calibrates pixel size from the ruler,
// segments the tissue, and derives color and health metrics.
//
// Usage:
//
//	planttracker analyze <image>
//	planttracker batch <dir>
//	planttracker serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
