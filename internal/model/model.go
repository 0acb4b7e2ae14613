package model

import (
	"time"
)

// UntaggedTag is the synthetic tag for valid flow records whose (port, protocol)
// pair has no entry in the lookup table.
const UntaggedTag = "Untagged"

// LookupKey identifies a lookup table entry. Port is kept verbatim as it appears
// in the lookup file; Protocol is always lowercased.
type LookupKey struct {
	Port     string
	Protocol string
}

// TagIndex maps (port, protocol) pairs to user-defined tags.
// It is built once by the lookup loader and never mutated afterwards.
type TagIndex struct {
	tags map[LookupKey]string
}

// NewTagIndex wraps a prepared mapping. The caller must not modify tags afterwards.
func NewTagIndex(tags map[LookupKey]string) *TagIndex {
	if tags == nil {
		tags = make(map[LookupKey]string)
	}
	return &TagIndex{tags: tags}
}

// Tag returns the tag for the pair and whether one exists.
func (idx *TagIndex) Tag(port, protocol string) (string, bool) {
	tag, ok := idx.tags[LookupKey{Port: port, Protocol: protocol}]
	return tag, ok
}

// TagOrUntagged returns the tag for the pair, or UntaggedTag when there is none.
func (idx *TagIndex) TagOrUntagged(port, protocol string) string {
	if tag, ok := idx.Tag(port, protocol); ok {
		return tag
	}
	return UntaggedTag
}

// Len returns the number of distinct keys in the index.
func (idx *TagIndex) Len() int {
	return len(idx.tags)
}

// PortProtocol is a (destination port, protocol name) pair as observed in the flow log.
type PortProtocol struct {
	Port     string
	Protocol string
}

// PortProtocolCount is a single row of the port/protocol table.
type PortProtocolCount struct {
	PortProtocol
	Count int
}

// PortProtocolCounts counts flow records per (port, protocol) pair and
// remembers the order in which pairs were first seen.
type PortProtocolCounts struct {
	counts map[PortProtocol]int
	order  []PortProtocol
}

// NewPortProtocolCounts creates an empty counter.
func NewPortProtocolCounts() *PortProtocolCounts {
	return &PortProtocolCounts{counts: make(map[PortProtocol]int)}
}

// Inc adds one to the count of the pair.
func (c *PortProtocolCounts) Inc(key PortProtocol) {
	c.Add(key, 1)
}

// Add adds n to the count of the pair.
func (c *PortProtocolCounts) Add(key PortProtocol, n int) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key] += n
}

// Get returns the count of the pair.
func (c *PortProtocolCounts) Get(key PortProtocol) int {
	if c == nil {
		return 0
	}
	return c.counts[key]
}

// Len returns the number of distinct pairs.
func (c *PortProtocolCounts) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Total returns the sum of all counts.
func (c *PortProtocolCounts) Total() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Rows returns all pairs with their counts in first-seen order.
func (c *PortProtocolCounts) Rows() []PortProtocolCount {
	if c == nil {
		return nil
	}
	rows := make([]PortProtocolCount, 0, len(c.order))
	for _, key := range c.order {
		rows = append(rows, PortProtocolCount{PortProtocol: key, Count: c.counts[key]})
	}
	return rows
}

// TagCounts counts flow records per tag, including UntaggedTag once finalized.
type TagCounts map[string]int

// TaggedTotal returns the sum of all counts except UntaggedTag.
func (tc TagCounts) TaggedTotal() int {
	total := 0
	for tag, n := range tc {
		if tag != UntaggedTag {
			total += n
		}
	}
	return total
}

// Result is the outcome of processing a single flow log.
type Result struct {
	TagCounts          TagCounts
	PortProtocolCounts *PortProtocolCounts
	TotalValidLines    int
	SkippedLines       int
}

// Report is the finished result of a run as handed to writers and sinks.
type Report struct {
	*Result
	LookupFile  string
	FlowLogFile string
	GeneratedAt time.Time
}
