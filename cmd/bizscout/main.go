// Package main provides the entry point for the bizscout CLI.
//
// bizscout crawls a business-for-sale directory, skips listings in
// unwanted categories, and keeps the listings whose owners are selling
// because they are retiring or emigrating.
//
// Usage:
//
//	bizscout scan [search-url...]
//	bizscout history [run-id]
//
// See --help for all available options.
package main

// main is the entry point for bizscout.
func main() {
	Execute()
}
