// Package snapshot finds and rewrites PicklePersistence files.
//
// A persistence base path is either a single file holding every
// category, or a family of files named after it:
//
//	<base>_user_data
//	<base>_bot_data
//	<base>_chat_data
//	<base>_conversations
//	<base>_callback_data
//
// Locate resolves a base path to the files that exist. Manager reads a
// file with its digest, keeps timestamped backups next to it (or in a
// backup directory) and replaces it atomically:
//
//	<name>.tmp-<ulid>   written, synced, then renamed over <name>
//	<name>.<ulid>.bak   copy of the previous content
//
// Backups sort by creation time because ULIDs do. Prune keeps the newest
// RetentionCount backups per file.
package snapshot
