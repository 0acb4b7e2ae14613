package report

import (
	"FlowTagger/internal/model"
	"sort"
	"strconv"
)

// TagCount is a single row of the tag table.
type TagCount struct {
	Tag   string
	Count int
}

// SortedTags returns the tags with a positive count, by descending count and
// then ascending tag name.
func SortedTags(counts model.TagCounts) []TagCount {
	rows := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		if n > 0 {
			rows = append(rows, TagCount{Tag: tag, Count: n})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Tag < rows[j].Tag
	})
	return rows
}

// SortedPortProtocols returns every pair ordered by the numeric value of its port.
// Pairs with the same sort key keep their first-seen order.
func SortedPortProtocols(counts *model.PortProtocolCounts) []model.PortProtocolCount {
	rows := counts.Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		return portSortKey(rows[i].Port) < portSortKey(rows[j].Port)
	})
	return rows
}

// portSortKey is the numeric value of port, or 0 when port is not a decimal number.
func portSortKey(port string) uint64 {
	for i := 0; i < len(port); i++ {
		if port[i] < '0' || port[i] > '9' {
			return 0
		}
	}
	value, err := strconv.ParseUint(port, 10, 64)
	if err != nil {
		return 0
	}
	return value
}
