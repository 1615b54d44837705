// Package datacache provides helpers for downloading, caching, decompressing,
// and transforming remote datasets into local files or sqlite tables.
//
// Every operation follows the same discipline: resolve a path inside a
// process-wide cache directory, do the expensive step (download, decompress,
// transform) only if its output is not already there, and return the result.
// Artifacts are written to temp files and renamed into place, so a crashed
// download is never mistaken for a complete one.
//
// # Quick Start
//
// Fetch a remote file, decompressing it on arrival:
//
//	path, err := datacache.FetchFile(ctx, "https://example.com/genes.csv.gz",
//	    datacache.FetchWithDecompress(),
//	)
//
// Parse a remote FASTA file into an identifier→sequence map:
//
//	seqs, err := datacache.FetchFastaDict(ctx, fastaURL)
//
// Load a remote CSV into a named sqlite table:
//
//	database, err := datacache.FetchCSVDB(ctx, "genes", csvURL)
//
// # Cache Directories
//
// By default artifacts live under the user cache directory (or the directory
// named by the DATACACHE_DIR environment variable), grouped into one
// subdirectory per dataset. Construct a [Cache] with [WithDir] or [WithTTL]
// for finer control:
//
//	c, err := datacache.New(
//	    datacache.WithDir("/var/cache/mydata"),
//	    datacache.WithTTL(24*time.Hour),
//	)
//
// # Transformations
//
// [FetchAndTransform] memoizes a caller-supplied transformation over a fetched
// source file: the transformer runs only when its output file is absent, while
// the loader runs on every call.
package datacache
