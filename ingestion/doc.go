// Package ingestion loads channel export files into the message store.
//
// The Loader reads every *.json file of an export directory in lexical
// order. Each file holds one channel and its messages and is written in a
// single transaction:
//   - The channel row is upserted with the batch message count
//   - Each message is upserted; its safety columns are left untouched
//   - Malformed message entries are skipped and counted
//
// A file that cannot be read or decoded is reported and skipped without
// stopping the run.
package ingestion
