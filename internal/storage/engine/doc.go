// Package engine wires the store, the B+ tree, the version index and the
// commit protocol into the aodb database.
//
// # Versions
//
// Every Set, Del or Apply against a version returns a new version whose
// parent is the input; the input stays readable forever. Versions are only
// candidates until Commit publishes one as the current version:
//
//	db, err := engine.Open("data.aodb")
//	v := db.Current()
//	v, err = db.Set(v, []byte("a"), []byte("1"))
//	ok, err := db.Commit(v) // false if someone else committed first
//
// Txn wraps the same calls for callers that prefer a mutable handle.
//
// # Reading
//
// Get, Has and iterators read a fixed version and never observe later
// writes. Values returned to callers are copies.
package engine
