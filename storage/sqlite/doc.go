// Package sqlite implements storage.MessageStore on SQLite.
//
// The store uses the pure-Go modernc.org/sqlite driver through sqlx, so no
// cgo toolchain is needed. The schema lives in embedded SQL migrations
// applied with golang-migrate when the store is opened.
//
// # Column Ownership
//
// Ingestion owns every column except safety_status, safety_score and
// safety_flags. Re-ingesting a message replaces the ingestion columns and
// leaves the safety columns untouched. Only Classify writes them.
//
// # Usage
//
//	store, err := sqlite.Open("discord.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	safe, err := store.SafeMessages(ctx, core.MinIndexableContentLength)
package sqlite
