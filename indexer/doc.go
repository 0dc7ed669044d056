// Package indexer maintains the embedding index over the gold dataset.
//
// Each run diffs gold identifiers against stored vectors and embeds only
// the missing ones, in provider batches with retry and exponential backoff.
// Vectors are append-only: re-running over an unchanged gold set makes no
// provider calls.
package indexer
