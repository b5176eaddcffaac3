// Package testutil provides shared test helpers and fixtures for hookguard.
//
// Philosophy:
// - Prefer real SQLite (no mocks) for correctness.
// - Keep helpers small, composable, and deterministic.
// - Register cleanup via t.Cleanup so tests stay leak-free.
//
// Most packages should start with:
//
//	database := testutil.NewTestDB(t)
//	decision := testutil.MakeDecision(t, database, testutil.DecisionWithCommand("rm -rf /"))
package testutil
