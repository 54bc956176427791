//go:build sqlite_vec && cgo

package store

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// init registers the sqlite-vec extension against the mattn/go-sqlite3 cgo
// driver, enabling the `vec0` virtual table and `vec_distance_cosine`
// function the Semantic Retriever's SQLiteVecIndex depends on. Grounded on
// internal/store/init_vec.go verbatim — the registration itself is not
// domain-specific, so it carries over unmodified.
func init() {
	vec.Auto()
}
