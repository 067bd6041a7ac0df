// Package migrate rewrites python-telegram-bot v13 persistence data into
// the form v20 loads.
//
// A Migrator drives pkg/pickle with three hooks:
//
//   - find class: telegram.* references are resolved by class name
//     through a closed Registry of v20 classes; anything else passes
//     through untouched
//   - set state: the persisted attribute map of every telegram object is
//     rewritten with FieldRenames (bot -> _bot, voice_chat_* ->
//     video_chat_*)
//   - persistent id: the v13 bot placeholder string is written as the
//     persistent id v20 resolves to the running bot
//
// Telegram objects are written through
// telegram.ext._picklepersistence._reconstruct_to(cls, attrs), the same
// reduction v20 uses, so the output is loadable by
// PicklePersistence. Data already in that form is accepted, which makes
// a second run over migrated files harmless.
//
// Inspect decodes a file without changing it and reports what a
// migration would touch.
package migrate
