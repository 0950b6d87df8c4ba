package pipeline

import (
	"sort"
	"strings"
)

// MergeOutcome is the aggregated view of all page results for one run.
type MergeOutcome struct {
	TOC        string
	PageErrors []PageError
	Succeeded  int
	Total      int
}

// Merge consumes page results in whatever order the pool completes
// them and reassembles the fragments in ascending page order. The
// output depends only on the set of results, never on arrival order.
func Merge(results <-chan PageResult) MergeOutcome {
	fragments := make(map[int]string)
	var pageErrs []PageError

	total := 0
	for r := range results {
		total++
		if r.Err != nil {
			pageErrs = append(pageErrs, PageError{
				PageIndex: r.PageIndex,
				Stage:     r.Stage,
				Message:   r.Err.Error(),
			})
			continue
		}
		fragments[r.PageIndex] = r.Fragment
	}

	indices := make([]int, 0, len(fragments))
	for idx := range fragments {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var sb strings.Builder
	for _, idx := range indices {
		frag := strings.TrimSpace(fragments[idx])
		if frag == "" {
			// A blank fragment is a page without TOC content, still a
			// successful page.
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(frag)
	}

	sort.Slice(pageErrs, func(i, j int) bool { return pageErrs[i].PageIndex < pageErrs[j].PageIndex })

	return MergeOutcome{
		TOC:        sb.String(),
		PageErrors: pageErrs,
		Succeeded:  len(fragments),
		Total:      total,
	}
}

// Status applies the partial-failure policy: any page success with at
// least one failure is a partial success; no page success is a
// failure; a clean run is completed.
func (m MergeOutcome) Status() ResultStatus {
	switch {
	case m.Total == 0 || m.Succeeded == 0:
		return ResultFailed
	case len(m.PageErrors) > 0:
		return ResultPartial
	default:
		return ResultCompleted
	}
}
