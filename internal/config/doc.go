// Package config provides the configuration of a patentcrawl run: where to
// crawl, how to talk to the listing service, where to cache pages, and how to
// report the results.
//
// Values come from three layers, later ones winning: the defaults of
// NewConfig, the optional .patentcrawl YAML file, and command line flags.
package config
