package router

import (
	"context"

	"github.com/greenrow/seedshop-backend/internal/analytics/types"
)

type fakeWriter struct {
	inserted []types.SalesEventRow
	err      error
}

func (f *fakeWriter) InsertSales(_ context.Context, row types.SalesEventRow) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, row)
	return nil
}
