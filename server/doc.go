// Package server exposes hybrid search over HTTP with gin.
//
// Routes:
//
//	POST /api/search      {query, category[], genre[], price_start, price_end}
//	GET  /api/categories  distinct category labels
//	GET  /api/genres      distinct genre labels
//	GET  /health
//
// Only a missing query is reported as 400; other failures are logged and
// answered with 500.
package server
