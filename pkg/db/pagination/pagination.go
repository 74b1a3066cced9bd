package pagination

const (
	DefaultPageSize = 10
	MaxPageSize     = 250
)

type Pagination struct {
	Page int `form:"page,default=0" json:"page"`
	Size int `form:"size,default=10" json:"size"` // Min 1, Max 250
}

// Normalize clamps page and size into the supported range.
func (p Pagination) Normalize() Pagination {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return n.Page * n.Size
}

func (p Pagination) Limit() int {
	return p.Normalize().Size
}

type PageInfo struct {
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
}

func BuildPageInfo(total int64, p Pagination) PageInfo {
	n := p.Normalize()
	pages := int(total / int64(n.Size))
	if total%int64(n.Size) != 0 {
		pages++
	}
	return PageInfo{
		TotalElements: total,
		TotalPages:    pages,
		Page:          n.Page,
		Size:          n.Size,
	}
}
