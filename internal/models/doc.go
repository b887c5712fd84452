// Package models defines the value types shared by the queue, playback and persistence layers.
//
//   - [Entry] : one queued track, [BasicInfo] metadata plus [AddedBy] attribution
//   - [Ref] : an unresolved reference, optionally carrying prefetched metadata
//   - [Mode] : append or prepend insertion
//   - [Snapshot] : a persisted copy of one session's queue and playback flags
//   - [Playable] : the stream URL and byte length used by the chunked assembler
//
// Entries are immutable; every structural change replaces positions in a session's list.
package models
