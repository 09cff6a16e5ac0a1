// Package store provides SQLite-backed storage for calculation history
// and user settings.
//
// Two tables are kept:
//   - calculation_history: evaluated expressions, newest first, capped at
//     MaxEntries rows
//   - settings: string key/value pairs such as the UI theme
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// The default driver is the cgo-based "sqlite3". Builds without cgo can
// select the pure Go "sqlite" driver with WithDriver.
package store
