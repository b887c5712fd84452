// package stream turns a range-fetchable remote resource into one continuous byte stream.
//
// An [Assembler] fetches sequential byte ranges of at most ChunkSize bytes, one request at a time,
// and pipes each range into a single [Stream]. The next range is requested only after the previous
// one has been fully consumed, so downstream read pace throttles upstream fetches.
//
// Each stream runs a small state machine:
//
//	Idle -> Fetching(0) -> Draining(0) -> Fetching(1) -> ... -> Done
//	                 \              \
//	                  +--------------+--> Errored
//
// A fetch error at any chunk is forwarded to the reader and ends the stream. Nothing is retried.
package stream
