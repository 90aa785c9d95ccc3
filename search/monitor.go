package search

import "github.com/poiesic/strata/core"

// SearchMonitor receives callbacks at each stage of a search.
type SearchMonitor interface {
	Start(query string)
	AfterWordLookup(word string, ids []string)
	AfterUnion(ids []string)
	AfterRecordRetrieval(campaigns []*core.Campaign)
	Finish(results []*core.Campaign)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                          {}
func (n *noopMonitor) AfterWordLookup(_ string, _ []string)    {}
func (n *noopMonitor) AfterUnion(_ []string)                   {}
func (n *noopMonitor) AfterRecordRetrieval(_ []*core.Campaign) {}
func (n *noopMonitor) Finish(_ []*core.Campaign)               {}
