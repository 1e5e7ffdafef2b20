package issue

import (
	"sort"

	commonDto "anoa.com/campusfix/pkg/dto"
)

// SortIssues orders issues in place. Both modes are stable, so ties keep the
// order the issues arrived in (newest first from the repository).
func SortIssues(issues []commonDto.IssueResponse, mode string) {
	switch mode {
	case commonDto.SortByUpvotes:
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].UpvoteCount > issues[j].UpvoteCount
		})
	default:
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].ReportedAt.After(issues[j].ReportedAt)
		})
	}
}
