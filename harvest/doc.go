// Package harvest fetches item details into the bronze stage.
//
// Identifiers come from the catalog registry minus those already staged.
// The Orchestrator deals them round-robin to a fixed pool of workers; each
// worker resolves its partition through a Fetcher with bounded concurrency
// and writes one batch when every fetch has resolved. The Harvester repeats
// passes until nothing is pending.
package harvest
