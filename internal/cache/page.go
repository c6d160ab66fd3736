package cache

// PageInfo locates a (limit, offset) window within a result set of total
// items. NextOffset is nil on the last page.
type PageInfo struct {
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
	NextOffset *int `json:"next_offset"`
	PrevOffset int  `json:"prev_offset"`
}

// NewPageInfo computes the window description. A limit below 1 is treated
// as 1 and a negative offset as 0, so the function is total on its inputs;
// callers validate parameters before paginating.
func NewPageInfo(total, limit, offset int) PageInfo {
	if limit < 1 {
		limit = 1
	}
	if offset < 0 {
		offset = 0
	}
	if total < 0 {
		total = 0
	}
	info := PageInfo{
		Page:       offset/limit + 1,
		TotalPages: (total + limit - 1) / limit,
		HasMore:    offset+limit < total,
		PrevOffset: max(0, offset-limit),
	}
	if info.HasMore {
		next := offset + limit
		info.NextOffset = &next
	}
	return info
}
