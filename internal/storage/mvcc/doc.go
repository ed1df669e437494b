// Package mvcc tracks the versions stored in an aodb file.
//
// A version is named by the offset of its version record. The record holds
// the root of the version's tree and the version it was derived from, so the
// versions form a tree whose root is the empty origin, version 0. A parent is
// always written before its children, which makes every parent id smaller
// than its children's ids.
//
// The Manager keeps an in-memory index of all versions, rebuilt by replaying
// version records at open, along with each version's distance from the
// origin. IsBasedOn uses those depths to walk an ancestry chain no further
// than needed. The current version is moved only by head records, which the
// commit protocol appends.
package mvcc
