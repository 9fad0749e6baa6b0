// Package store provides SQLite-backed history of scheduling runs.
//
// Every attempt to schedule a model is recorded, whether it succeeded or
// not. Successful results double as a cache: a model whose resolved hash
// matches a stored success can reuse that result without rescheduling.
//
// # Ordering
//
//   - Runs are ordered by seq, a logical counter assigned on insert
//   - Wall-clock time is never stored or compared
//   - Every query that returns several rows orders by seq, then id
//
// # Storage
//
//   - Results are stored as RFC 8785 canonical JSON (see internal/ir)
//   - Failed runs keep the error kind, code and message instead
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
