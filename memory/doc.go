// Package memory persists text-only chat transcripts.
//
// Persistence model:
//   - Only text messages are stored (role + text). Tool blocks are transient.
//   - A Store keeps one JSON file per session under {dir}/{agent_id}/{session_id}.json.
package memory
