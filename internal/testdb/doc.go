//go:build integration

// Package testdb provides utilities for database integration tests.
//
// Each test runs inside its own transaction, which is rolled back when the
// test completes, so tests can run in parallel against one database:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        jobs := postgres.NewPostgresJobStore(tx, nil)
//	        ...
//	    })
//	}
//
// The database is taken from REFLECTIONS_TEST_DATABASE_URL; tests are skipped
// when it is unset. The embedded migrations are applied once per process.
package testdb
