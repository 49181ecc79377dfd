// Package qdrant implements storage.VectorIndex on a Qdrant server.
//
// Each Replace deletes and recreates the collection with Euclidean distance,
// then upserts points in batches. Point ids are the 64-bit hash of the
// message id; the message id itself and the display fields travel in the
// payload. Channel and author filters become Must match conditions.
//
//	idx, err := qdrant.NewIndex("localhost", 6334)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
package qdrant
