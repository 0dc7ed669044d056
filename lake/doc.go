// Package lake stores the bronze, silver and gold datasets as parquet files.
//
// Bronze is append-only: each worker writes one batch file named by a random
// key, through a temporary file renamed into place. Silver and gold are each
// one file, regenerated in full from the stage before them.
package lake
