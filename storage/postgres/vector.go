package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"
)

const (
	// maxVectorIndexDimensions is the widest vector column pgvector can
	// index with HNSW.
	maxVectorIndexDimensions = 2000
	// maxHalfvecIndexDimensions is the same limit for halfvec.
	maxHalfvecIndexDimensions = 4000

	defaultEfSearch = 40
	maxEfSearch     = 1000
)

// vectorLayout derives the index and distance SQL for one embedding width.
// Vectors are always stored at full precision; widths above
// maxVectorIndexDimensions are indexed and ranked through a halfvec cast.
type vectorLayout struct {
	dimensions int
	// iterativeScan reports pgvector >= 0.8, whose HNSW scans keep going
	// until enough rows pass the WHERE clause.
	iterativeScan bool
}

func newVectorLayout(dimensions int, extVersion string) (vectorLayout, error) {
	if dimensions <= 0 {
		return vectorLayout{}, fmt.Errorf("postgres: dimensions must be positive, got %d", dimensions)
	}
	if dimensions > maxHalfvecIndexDimensions {
		return vectorLayout{}, fmt.Errorf("postgres: %d dimensions exceeds the indexable maximum of %d", dimensions, maxHalfvecIndexDimensions)
	}
	return vectorLayout{dimensions: dimensions, iterativeScan: supportsIterativeScan(extVersion)}, nil
}

func (l vectorLayout) half() bool {
	return l.dimensions > maxVectorIndexDimensions
}

// indexedExpr is the expression the HNSW index is built on.
func (l vectorLayout) indexedExpr() string {
	if l.half() {
		return fmt.Sprintf("(embedding::halfvec(%d))", l.dimensions)
	}
	return "embedding"
}

func (l vectorLayout) indexStatement() string {
	ops := "vector_l2_ops"
	if l.half() {
		ops = "halfvec_l2_ops"
	}
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS description_index ON %s USING hnsw (%s %s)`,
		embeddingTable, l.indexedExpr(), ops)
}

// distanceExpr is the L2 distance between column e.embedding and
// parameter param, written so the planner can use the index.
func (l vectorLayout) distanceExpr(param string) string {
	if l.half() {
		return fmt.Sprintf("e.embedding::halfvec(%d) <-> %s::halfvec(%d)", l.dimensions, param, l.dimensions)
	}
	return "e.embedding <-> " + param
}

func (l vectorLayout) queryArg(v []float32) any {
	if l.half() {
		return pgvector.NewHalfVector(v)
	}
	return pgvector.NewVector(v)
}

// searchSQL joins vectors to gold records, keeps the k nearest passing the
// filter, then orders them by distance and id. An empty label array or a
// zero upper price disables that predicate.
func (l vectorLayout) searchSQL() string {
	return `
WITH nearest AS MATERIALIZED (
	SELECT d.id, d.data, ` + l.distanceExpr("$1") + ` AS distance
	FROM ` + embeddingTable + ` AS e
	JOIN ` + gameTable + ` AS d ON d.id = e.id
	WHERE COALESCE(d.price, 0) >= $2::float8
	  AND ($3::float8 = 0 OR COALESCE(d.price, 0) <= $3::float8)
	  AND (cardinality($4::text[]) = 0 OR d.categories && $4::text[])
	  AND (cardinality($5::text[]) = 0 OR d.genres && $5::text[])
	ORDER BY distance
	LIMIT $6
)
SELECT data, distance FROM nearest ORDER BY distance, id`
}

// searchSettings are the SET LOCAL statements run before a search.
// The HNSW scan only visits ef_search candidates before the WHERE clause
// applies, so filtered searches scan iteratively where supported and
// otherwise widen the candidate list to the maximum.
func (l vectorLayout) searchSettings(k int, filtered bool) []string {
	ef := max(k, defaultEfSearch)
	var stmts []string
	if l.iterativeScan {
		stmts = append(stmts, `SET LOCAL hnsw.iterative_scan = relaxed_order`)
	} else if filtered {
		ef = maxEfSearch
	}
	ef = min(ef, maxEfSearch)
	return append(stmts, fmt.Sprintf(`SET LOCAL hnsw.ef_search = %d`, ef))
}

// supportsIterativeScan reports whether extension version v ("0.8.0") is
// at least 0.8.
func supportsIterativeScan(v string) bool {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return major > 0 || minor >= 8
}
