// Package storage implements the append-only file underneath aodb.
//
// # File Layout
//
// A database is a single file: a 16-byte FileHeader followed by a sequence of
// self-delimiting records. Every record is framed as
//
//	kind (1) | payload length (u32 LE) | CRC-32 of kind+payload (u32 LE) | payload
//
// and addressed by the byte offset of its first frame byte. Bytes are never
// rewritten once appended, so any prefix of the file that ends on a record
// boundary is a valid database.
//
// # Writing
//
// All appends go through Store.Update, which serialises writers inside the
// process with a mutex and across processes with an advisory lock on a
// sidecar "<path>.lock" file. Before running the caller's function, Update
// replays any records other processes appended since this handle last looked.
// Records staged on the Batch are written with a single positioned write:
//
//	err := s.Update(func(b *storage.Batch) error {
//	    off := b.Add(storage.KindNode, payload)
//	    b.OnCommit(func() { remember(off) })
//	    return nil
//	})
//
// # Recovery
//
// Open scans every record and hands it to the Replayer. An incomplete final
// record, left by a crash in the middle of an append, is truncated. A bad
// record followed by more data is reported as ErrCorrupt.
//
// # Reading
//
// Store.Read is a positioned read that takes no locks; records below the
// known end of file never change.
package storage
