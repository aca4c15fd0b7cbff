package httpserver

import "strconv"

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// paginate normalizes page/size query values and returns the store offset.
func paginate(page, size int) (p, s, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size, (page - 1) * size
}
