// Package memfile builds small PDF files in memory.  It can be used for
// unit tests which need input files with a known structure: classic
// cross-reference tables, cross-reference streams, object streams and
// incremental updates.
package memfile
