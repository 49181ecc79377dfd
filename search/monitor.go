package search

import "github.com/kgeesawor/discord-intel/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query Query)
	AfterCollectionLookup(info *core.CollectionInfo)
	AfterQueryEmbedding(vector []float32)
	AfterIndexQuery(hits []*core.SearchHit)
	Finish(hits []*core.SearchHit)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query)                                {}
func (n *noopMonitor) AfterCollectionLookup(_ *core.CollectionInfo) {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)              {}
func (n *noopMonitor) AfterIndexQuery(_ []*core.SearchHit)          {}
func (n *noopMonitor) Finish(_ []*core.SearchHit)                   {}
