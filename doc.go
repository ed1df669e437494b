// Package aodb is an append-only, multi-version key/value database stored in
// a single file.
//
// Every write produces a new immutable version identified by an integer;
// older versions stay readable. A version becomes the database's current
// version only through Commit, which fails when another writer committed a
// version the candidate does not descend from.
//
//	db, err := aodb.Open("app.aodb")
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	v, err := db.Set(db.Current(), []byte("greeting"), []byte("hello"))
//	if err != nil {
//		return err
//	}
//	if ok, err := db.Commit(v); err != nil || !ok {
//		// rebase on db.Current() and retry
//	}
package aodb
