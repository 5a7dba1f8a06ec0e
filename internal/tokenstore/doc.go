// Package tokenstore provides persistent storage abstractions for the GitHub access token.
//
// Backends:
//   - File: single plain-text dotfile in the user's home directory, written atomically
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//   - Env: read-only environment variable, used as a highest-precedence override
//
// OverrideStore layers an Env store over one of the writable backends. Reads consult
// the override first; writes only ever reach the cache.
package tokenstore
