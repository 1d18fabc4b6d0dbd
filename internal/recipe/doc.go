// Package recipe defines the domain types, store and fetcher ports, error
// taxonomy, and URL canonicalization shared by the extraction pipeline, the
// HTTP API, and the storage backends.
package recipe
