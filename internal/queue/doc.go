// package queue implements the per-session track queue.
//
// A [Store] owns the ordered entries of one session. Structural mutations are serialized through a
// FIFO [Gate] so that concurrent commands, playlist ingestion, and playback advancement observe a
// consistent order. [Interleave] implements contributor fairness.
package queue
