// Package rankcache holds caller-side caches around a related.Engine.
//
// EngineCache keeps one Engine alive across calls as long as the caller
// keeps ranking against the same corpus slice. ResultCache stores rank
// results in an external key-value store (Redis in production), keyed by
// a BLAKE3 fingerprint of the corpus stems, the query stems and the
// weights, so identical requests skip scoring entirely.
package rankcache
