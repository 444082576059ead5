package redis

// keyspace builds the Redis keys used by the broker. Every key starts with
// "{prefix}:" so several deployments can share one Redis database.
type keyspace struct {
	prefix string
}

// queue is the list of pending envelopes: {prefix}:queue
func (k keyspace) queue() string { return k.prefix + ":queue" }

// job is the state hash of a job: {prefix}:job:{id}
func (k keyspace) job(id string) string { return k.prefix + ":job:" + id }

// processing is the list of envelopes claimed by a worker: {prefix}:processing:{worker}
func (k keyspace) processing(workerID string) string { return k.prefix + ":processing:" + workerID }

// worker is the heartbeat hash of a worker: {prefix}:worker:{worker}
func (k keyspace) worker(workerID string) string { return k.prefix + ":worker:" + workerID }

// workers is the set of every worker id that registered and has not been reaped.
func (k keyspace) workers() string { return k.prefix + ":workers" }
