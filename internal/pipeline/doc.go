// Package pipeline runs per-patent work in sequence and fans patents out
// over a bounded number of goroutines.
//
// A Pipeline is an ordered list of Steps applied to one Job. The cache
// command builds a pipeline of DetailStep and CitationStep so that every
// patent of a listing has its detail page and the detail pages of its
// citations stored in the page cache. BatchProcessor runs one fresh pipeline
// per patent with errgroup.SetLimit bounding the concurrency.
package pipeline
