package types

import (
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/samber/lo"
)

const (
	FilterDefaultLimit  = 50
	FilterMaxLimit      = 1000
	FilterDefaultOffset = 0
	FilterDefaultSort   = "created_at"
	FilterDefaultOrder  = "desc"
)

// QueryFilter is a generic pagination and ordering filter for list queries
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit"`
	Offset *int    `json:"offset,omitempty" form:"offset"`
	Status *Status `json:"status,omitempty" form:"status"`
	Sort   *string `json:"sort,omitempty" form:"sort"`
	Order  *string `json:"order,omitempty" form:"order"`
}

func NewDefaultQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  lo.ToPtr(FilterDefaultLimit),
		Offset: lo.ToPtr(FilterDefaultOffset),
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr(FilterDefaultSort),
		Order:  lo.ToPtr(FilterDefaultOrder),
	}
}

func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{
		Offset: lo.ToPtr(FilterDefaultOffset),
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr(FilterDefaultSort),
		Order:  lo.ToPtr(FilterDefaultOrder),
	}
}

func (f *QueryFilter) Validate() error {
	if f.Limit != nil {
		if *f.Limit < 1 || *f.Limit > FilterMaxLimit {
			return ierr.NewError("invalid limit").
				WithHintf("Limit must be between 1 and %d", FilterMaxLimit).
				Mark(ierr.ErrValidation)
		}
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must not be negative").
			Mark(ierr.ErrValidation)
	}
	if f.Order != nil && *f.Order != "asc" && *f.Order != "desc" {
		return ierr.NewError("invalid order").
			WithHint("Order must be asc or desc").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return FilterDefaultLimit
	}
	return *f.Limit
}

func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return FilterDefaultOffset
	}
	return *f.Offset
}

func (f *QueryFilter) GetStatus() Status {
	if f == nil || f.Status == nil {
		return StatusPublished
	}
	return *f.Status
}

func (f *QueryFilter) GetSort() string {
	if f == nil || f.Sort == nil {
		return FilterDefaultSort
	}
	return *f.Sort
}

func (f *QueryFilter) GetOrder() string {
	if f == nil || f.Order == nil {
		return FilterDefaultOrder
	}
	return *f.Order
}

// PaginationResponse is the standard envelope for paginated list responses
type PaginationResponse struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func NewPaginationResponse(total, limit, offset int) PaginationResponse {
	return PaginationResponse{Total: total, Limit: limit, Offset: offset}
}
