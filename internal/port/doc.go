// Package port allocates unique port offsets for worktree environments.
//
// Ports follow the deterministic formula port = basePort + offset*portStep
// (default 3000 + offset*10), with offsets starting at 1 so the main
// checkout's conventional port is never reassigned. The lowest free offset
// always wins, which keeps port numbers human-predictable (3010, 3020, ...).
//
// Mutual exclusion across independent processes rests on a single
// primitive: exclusive creation of a lock file named after the offset
// (O_CREAT|O_EXCL). The lock file is the durable reservation; there is no
// separate ledger. A second layer, the env-file scan, catches offsets
// whose lock has been lost but whose worktree still records the port.
package port
