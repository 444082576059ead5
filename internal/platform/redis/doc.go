// Package redis implements the job broker on top of Redis.
//
// Jobs are pushed as JSON envelopes onto a list and claimed atomically into a
// per-worker processing list. Live job state is kept in a hash per job that
// expires after the configured result expiry. Workers announce themselves with
// a heartbeat key; jobs held by a worker whose heartbeat lapsed are moved back
// onto the queue.
package redis
