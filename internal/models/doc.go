// Package models defines the music entities tunesync reconciles and the persistent run records it keeps.
//
// The package contains two categories of types:
//
// 1. Collection entities: value types with identity and merge rules
//   - [Song] : a track with ordered artists and per-provider ids
//   - [Artist] : identified by normalized name
//   - [Album] : ordered songs identified by (name, main artist) or a shared provider id
//   - [Playlist] : ordered songs identified by name or a shared provider id
//   - [LikedSongs] : the single playlist-shaped container of liked songs
//
// 2. Persistent records: rows of the run ledger
//   - [Run] : one materialize or reconcile invocation
//   - [JobRecord] : the terminal outcome of one fulfillment job
//
// Merges are in place: callers holding a pointer to an entity observe every merge into it.
// Persistent records implement [Model] and are stored through a [Repository].
package models
