// Package main provides the entry point for the patentcrawl CLI.
//
// patentcrawl lists the patents of an assignee from a public patent listing
// service, resolves their citations, and keeps every downloaded page in a
// local cache so that repeated runs work offline.
//
// Usage:
//
//	patentcrawl list <assignee>...
//	patentcrawl citations <patent-id>
//	patentcrawl cache <assignee>...
//
// See --help for all available options.
package main

func main() {
	Execute()
}
