package indexing

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "Embedding", 100, 10)

	tracker.Add(5)
	assert.Equal(t, 0, tracker.Current(), "updates before Start are ignored")

	tracker.Start()
	tracker.Add(25)
	assert.Contains(t, buf.String(), "Embedding: 25/100")

	tracker.Add(500)
	assert.Equal(t, 100, tracker.Current(), "progress is capped at total")

	tracker.Finish()
	assert.Contains(t, buf.String(), "100.0%")
	assert.Positive(t, tracker.Elapsed())
}

func TestProgressTracker_Concurrent(t *testing.T) {
	tracker := NewProgressTracker(nil, "Embedding", 1000, 0)
	tracker.Start()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				tracker.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, tracker.Current())
	tracker.Finish()
}
