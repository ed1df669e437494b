// Package tx implements the commit protocol that publishes a version as the
// database's current state.
//
// Commit is optimistic. Writers build versions without coordination and race
// only when they publish: a version may become current only if the present
// current version lies on its ancestry chain, so nothing committed in
// between is lost. The check and the head record append run inside one
// storage.Store.Update, under the store's in-process mutex and cross-process
// file lock, after records from other processes have been replayed.
//
// Before the head record is written every earlier byte of the file is synced,
// so a durable head never references nodes that could vanish in a crash.
package tx
