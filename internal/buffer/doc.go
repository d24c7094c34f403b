// Package buffer implements the deferred persistence buffer that decouples
// snippet-submission latency from database write latency.
//
// Submissions are staged in per-scope FIFO queues and flushed under two
// independent triggers: queue size and idle time. Failed writes are retried
// with capped exponential backoff; entries that exhaust their retry budget
// are dead-lettered for operator inspection.
//
// All mutable state is owned by a single coordinator goroutine consuming a
// command channel, so no locks guard the queue maps and size-threshold
// decisions always see a consistent snapshot. Queued entries and dead
// letters live in memory only: they do not survive a process restart.
package buffer
