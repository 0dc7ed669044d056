// Package postgres implements the storage repositories on PostgreSQL with
// the pgvector extension.
//
// Gold records live in the detail table with their filterable fields
// (price, categories, genres) lifted into columns and the full record kept
// as JSONB. Vectors live in details_embedding behind an HNSW index, so
// ranking is approximate. The badger backend remains the default; this
// backend is selected when a DSN is configured.
package postgres
