package printing

import (
	"sort"
	"strconv"
	"strings"
)

// PageSelection is an ascending, deduplicated set of 1-based page indices
type PageSelection []int

// Len returns the number of selected pages
func (s PageSelection) Len() int {
	return len(s)
}

// Contains reports whether page is selected
func (s PageSelection) Contains(page int) bool {
	i := sort.SearchInts(s, page)
	return i < len(s) && s[i] == page
}

// SelectPages parses a page-range expression such as "3-5,1" against a
// document of pageCount pages.
//
// Tokens are single pages ("n") or closed ranges ("a-b"), separated by
// commas. The result is deduplicated and sorted ascending regardless of the
// token order. An empty expression selects every page.
func SelectPages(expression string, pageCount int) (PageSelection, error) {
	if strings.TrimSpace(expression) == "" {
		all := make(PageSelection, 0, max(pageCount, 0))
		for p := 1; p <= pageCount; p++ {
			all = append(all, p)
		}
		return all, nil
	}

	seen := make(map[int]struct{})
	for _, raw := range strings.Split(expression, ",") {
		token := strings.TrimSpace(raw)
		first, last, err := parseToken(token)
		if err != nil {
			return nil, err
		}
		for _, p := range []int{first, last} {
			if p < 1 || p > pageCount {
				return nil, NewPageOutOfRangeError(p, pageCount)
			}
		}
		for p := first; p <= last; p++ {
			seen[p] = struct{}{}
		}
	}

	selection := make(PageSelection, 0, len(seen))
	for p := range seen {
		selection = append(selection, p)
	}
	sort.Ints(selection)
	return selection, nil
}

// parseToken parses "n" or "a-b" into an inclusive range
func parseToken(token string) (int, int, error) {
	if token == "" {
		return 0, 0, NewInvalidRangeError(token)
	}

	lo, hi, isRange := strings.Cut(token, "-")
	if !isRange {
		n, err := strconv.Atoi(token)
		if err != nil {
			return 0, 0, NewInvalidRangeError(token)
		}
		return n, n, nil
	}

	a, errA := strconv.Atoi(strings.TrimSpace(lo))
	b, errB := strconv.Atoi(strings.TrimSpace(hi))
	if errA != nil || errB != nil {
		return 0, 0, NewInvalidRangeError(token)
	}
	if a > b {
		return 0, 0, NewInvalidRangeError(token)
	}
	return a, b, nil
}

// NeedsDuplexPadding reports whether a blank page must be appended so that
// a double-sided job ends on a full sheet
func NeedsDuplexPadding(side Side, count int) bool {
	return side == SideDuplex && count%2 == 1
}

// PageSequence is the physical output order of a rewritten document: the
// selected source pages followed by an optional blank page that has no
// source index.
type PageSequence struct {
	Pages []int
	Blank bool
}

// Len returns the number of pages in the output document
func (q PageSequence) Len() int {
	if q.Blank {
		return len(q.Pages) + 1
	}
	return len(q.Pages)
}

// BuildPageSequence applies duplex padding to a selection
func BuildPageSequence(selection PageSelection, side Side) PageSequence {
	pages := make([]int, len(selection))
	copy(pages, selection)
	return PageSequence{
		Pages: pages,
		Blank: NeedsDuplexPadding(side, len(selection)),
	}
}
