package query

import (
	"context"
	"errors"
	"sync"

	"github.com/movielake/movielake/engine/evidence"
)

// retrieve runs the retrievers the route selects. For the both route the
// structured and document searches run concurrently; either failure fails
// the query.
func (s *Service) retrieve(ctx context.Context, question string, route evidence.Route, k int) (evidence.Raw, error) {
	switch route {
	case evidence.RouteStructured:
		res, err := s.structured.Search(ctx, question, k)
		if err != nil {
			return evidence.Raw{}, err
		}
		return evidence.Raw{DB: res.DB, CSV: res.CSV}, nil

	case evidence.RouteUnstructured:
		docs, err := s.docs.Search(ctx, question, k)
		if err != nil {
			return evidence.Raw{}, err
		}
		return evidence.Raw{Docs: docs}, nil

	default: // both
		var (
			wg           sync.WaitGroup
			raw          evidence.Raw
			strErr, dErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			res, err := s.structured.Search(ctx, question, k)
			if err != nil {
				strErr = err
				return
			}
			raw.DB, raw.CSV = res.DB, res.CSV
		}()
		go func() {
			defer wg.Done()
			raw.Docs, dErr = s.docs.Search(ctx, question, k)
		}()
		wg.Wait()
		if err := errors.Join(strErr, dErr); err != nil {
			return evidence.Raw{}, err
		}
		return raw, nil
	}
}
