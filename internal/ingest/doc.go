// Package ingest turns a GitHub repository identifier into a bounded list of
// decoded text files.
//
// An ingestion downloads the zipball snapshot for the requested ref through
// the GitHub REST API, enforces a cap on the archive size (both the declared
// Content-Length and the bytes actually read), and then filters the entries:
//
//   - directories and the snapshot's wrapper directory are dropped
//   - entries under ignored directories (.git, node_modules, build, ...) are dropped
//   - with a subpath, only entries below it are kept, with the prefix removed
//   - files over the per-file cap and binary files are dropped
//   - the rest is decoded as UTF-8, dropping malformed sequences
//
// Stats records how many entries reached each stage. Content problems never
// fail an ingestion; retrieval problems always do, and no payload is
// returned alongside an error.
package ingest
