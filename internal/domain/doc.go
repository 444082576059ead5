// Package domain contains the core entities of the orchestrator: jobs, their
// live execution state on the broker, and the durable result records written
// by workers. It is independent of any specific broker or database.
package domain
