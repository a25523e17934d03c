package domain

type Pagination struct {
	Total int
	Page  int
	Size  int
}

func (p Pagination) Pages() int {
	if p.Size <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

func (p Pagination) HasNext() bool {
	pages := p.Pages()
	return pages > 0 && p.Page < pages
}

// Numbers lists every page number, 1-based.
func (p Pagination) Numbers() []int {
	n := p.Pages()
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
