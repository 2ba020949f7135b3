package search

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/equipfind/equipfind/internal/catalog"
	apperrors "github.com/equipfind/equipfind/internal/pkg/errors"
)

// FilterOptions lists the values a caller can filter on.
type FilterOptions struct {
	Types    []string       `json:"types"`
	Brands   []string       `json:"brands"`
	Statuses []string       `json:"statuses"`
	Features []string       `json:"features"`
	Floors   []int          `json:"floors"`
	Rooms    []catalog.Room `json:"rooms"`
}

// Filters returns every distinct type, brand, status, feature, floor and
// room, each in catalog order.
func (e *Engine) Filters(ctx context.Context) (*FilterOptions, error) {
	start := time.Now()
	opts, err := e.filters(ctx)

	n := 0
	if opts != nil {
		n = len(opts.Types) + len(opts.Brands) + len(opts.Statuses) + len(opts.Features)
	}
	if e.metrics != nil {
		e.metrics.RecordSearch("filters", time.Since(start), n, err)
	}
	return opts, err
}

func (e *Engine) filters(ctx context.Context) (*FilterOptions, error) {
	opts := &FilterOptions{}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range []struct {
		field catalog.Field
		dst   *[]string
	}{
		{catalog.FieldType, &opts.Types},
		{catalog.FieldBrand, &opts.Brands},
		{catalog.FieldStatus, &opts.Statuses},
		{catalog.FieldFeature, &opts.Features},
	} {
		g.Go(func() error {
			v, err := e.catalog.Distinct(gctx, t.field, 0)
			if err != nil {
				return apperrors.CatalogError("loading "+string(t.field)+" values failed", err)
			}
			*t.dst = v
			return nil
		})
	}
	g.Go(func() error {
		v, err := e.catalog.Floors(gctx, 0)
		if err != nil {
			return apperrors.CatalogError("loading floors failed", err)
		}
		opts.Floors = v
		return nil
	})
	g.Go(func() error {
		v, err := e.catalog.Rooms(gctx)
		if err != nil {
			return apperrors.CatalogError("loading rooms failed", err)
		}
		opts.Rooms = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return opts, nil
}
