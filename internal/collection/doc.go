// Package collection holds the desired state: one [models.LikedSongs], a set of albums and a set of playlists.
//
// Adding an entity that matches an existing one merges into the existing instance, so pointers handed out
// earlier stay valid. Standalone liked songs are computed on every call. The store does no I/O except
// through [Collection.Save] and [Load], which read and write whole JSON snapshots.
package collection
