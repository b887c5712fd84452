// package player drives playback for each session.
//
// A [Coordinator] reads position 0 of its session's queue, opens a chunked stream for it, and applies
// the loop modes when a track finishes. A [Registry] owns every live session and restores persisted
// queues when a session is first touched.
package player
