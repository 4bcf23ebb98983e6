// Package sqlite provides SQLite-backed checkpoint storage using
// github.com/mattn/go-sqlite3.
//
// The schema is created on open. Take relies on DELETE ... RETURNING, which
// needs SQLite 3.35 or newer; the bundled library satisfies this.
//
//	s, err := sqlite.NewSqliteCheckpointStore(sqlite.SqliteOptions{
//		Path: "./checkpoints.db",
//	})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package sqlite
