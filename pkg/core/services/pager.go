package services

import (
	"context"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

// PageSource is one paginated admin listing of T. Callers pick the source
// they want explicitly.
type PageSource[T any] interface {
	Kind() string
	Size() int
	Load(ctx context.Context, api ports.AdminAPI, page int, query string) (rows []T, total int, err error)
}

type UserPages struct{}

func (UserPages) Kind() string { return "user" }
func (UserPages) Size() int { return 10 }

func (p UserPages) Load(ctx context.Context, api ports.AdminAPI, page int, query string) ([]domain.User, int, error) {
	res, err := api.ListUsers(ctx, page, p.Size(), query)
	if err != nil {
		return nil, 0, err
	}
	return res.Items, res.Total, nil
}

type LinkPages struct{}

func (LinkPages) Kind() string { return "link" }
func (LinkPages) Size() int { return 7 }

func (p LinkPages) Load(ctx context.Context, api ports.AdminAPI, page int, query string) ([]domain.AdminLink, int, error) {
	res, err := api.ListLinks(ctx, page, p.Size(), query)
	if err != nil {
		return nil, 0, err
	}
	return res.Items, res.Total, nil
}

var (
	_ PageSource[domain.User]      = UserPages{}
	_ PageSource[domain.AdminLink] = LinkPages{}
)

// Page is one loaded page of a listing.
type Page[T any] struct {
	Kind       string
	Query      string
	Rows       []T
	Pagination domain.Pagination
}

// LoadPage fetches a page from src, clamping page numbers below 1.
func LoadPage[T any](ctx context.Context, api ports.AdminAPI, src PageSource[T], page int, query string) (*Page[T], error) {
	if page < 1 {
		page = 1
	}
	rows, total, err := src.Load(ctx, api, page, query)
	if err != nil {
		return nil, err
	}
	return &Page[T]{
		Kind:       src.Kind(),
		Query:      query,
		Rows:       rows,
		Pagination: domain.Pagination{Total: total, Page: page, Size: src.Size()},
	}, nil
}

type Pager struct {
	api ports.AdminAPI
}

func NewPager(api ports.AdminAPI) *Pager {
	return &Pager{api: api}
}

func (p *Pager) Users(ctx context.Context, page int, query string) ([]domain.User, domain.Pagination, error) {
	pg, err := LoadPage[domain.User](ctx, p.api, UserPages{}, page, query)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return pg.Rows, pg.Pagination, nil
}

func (p *Pager) Links(ctx context.Context, page int, query string) ([]domain.AdminLink, domain.Pagination, error) {
	pg, err := LoadPage[domain.AdminLink](ctx, p.api, LinkPages{}, page, query)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return pg.Rows, pg.Pagination, nil
}
