package query

import "taskdeck/internal/task"

// TotalPages is the number of pages needed for total items, never less than one.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Project derives the visible page of tasks for q. The returned page number
// is q.Page clamped into [1, TotalPages]; callers store it back when it differs.
func Project(tasks []task.Task, q task.Query) (task.Page, int) {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = task.DefaultPageSize
	}

	matching := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Filters.Matches(t) {
			matching = append(matching, t)
		}
	}
	total := len(matching)

	page := min(max(q.Page, 1), TotalPages(total, pageSize))

	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return task.Page{Items: matching[start:end], Total: total}, page
}

// Window returns the 1-based index range of items shown on page, or 0,0 when
// nothing matches.
func Window(page, pageSize, total int) (int, int) {
	if total <= 0 || pageSize <= 0 {
		return 0, 0
	}
	page = max(page, 1)
	return (page-1)*pageSize + 1, min(page*pageSize, total)
}
