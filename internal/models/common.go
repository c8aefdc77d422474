package models

// Pagination describes page metadata returned alongside list payloads.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes page metadata from a total row count.
func NewPagination(page, pageSize, totalCount int) *Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	return &Pagination{Page: page, PageSize: pageSize, TotalCount: totalCount, TotalPages: totalPages}
}
