// Package loader fetches route modules lazily and caches them for the life
// of the process.
//
// Every node of a manifest has a LoadFunc. A Cache wraps the loaders so that:
//
//   - a node is loaded at most once successfully, and then served from memory
//   - concurrent requests for a node in flight share one load
//   - a failed load is not cached, so the next request starts a new attempt
//   - a caller whose context ends stops waiting, but the load itself runs on
//     and its result is still cached for later callers
//
// Sources turn module identifiers into bytes. FileSource reads a build
// output directory and S3Source reads an S3 bucket.
//
//	src := loader.NewFileSource("build/client")
//	cache := loader.NewFromSource(src, table.Nodes())
//	mod, err := cache.Load(ctx, 28)
package loader
