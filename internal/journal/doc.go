// Package journal keeps a durable append-only record of buffer activity.
// Every enqueue, persist, retry, dead-letter and flush outcome is written as
// one journal event, so operators can reconstruct what the buffer did for a
// given snippet even across restarts.
package journal
