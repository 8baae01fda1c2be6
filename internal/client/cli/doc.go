// Package cli provides the interactive docvault terminal client.
//
// It wires configuration, the hosted database, object storage, the identity
// provider, the secure store and the notification scheduler into the state
// stores, then runs a REPL over them. Typical flow: unlock with the
// biometric gate when it is enabled, restore or start a sign-in, and
// execute user commands.
//
// Key features:
//   - Sign in with the identity provider / sign out
//   - List, search, filter and page through items
//   - Create, edit and delete items with attachments, category and tags
//   - Manage categories, tags and reminders
//   - Lock the app behind a local passphrase
//
// Screens are reached through Route values; App.Navigate renders them.
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
