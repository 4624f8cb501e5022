// Package tokenstore provides durable storage for the OAuth access/refresh
// token pair.
//
// Supports three storage backends with different deployment tradeoffs:
//   - SQLite: database file with updated_at ordering, the default for
//     long-running deployments
//   - File: local JSON file with atomic writes and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows
//     Credential Manager, etc.)
//
// All backends share the same contract: the pair is written atomically, the
// most recently updated pair is current, and an empty store reports
// ErrNotFound until the initial OAuth consent completes.
package tokenstore
