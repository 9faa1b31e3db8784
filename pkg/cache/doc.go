// Package cache implements a concurrent, seekable demultiplexer packet
// cache: a producer/consumer layer that sits between a format-parsing
// demuxer (the Producer) and one or more decoders (the consumers).
//
// A background worker drives the Producer ahead of the consumers, holding
// packets in per-stream FIFO queues grouped into cached ranges (contiguous
// buffered time windows). Consumers read packets with blocking or
// non-blocking semantics, can seek within buffered ranges without touching
// the Producer, and the cache merges ranges when the Producer re-crosses
// already-cached territory and evicts old packets under a byte budget.
//
// The package deliberately knows nothing about any concrete container
// format, codec, or byte-stream transport; those are supplied by a
// Producer implementation (see the Producer interface in producer.go).
package cache
