package service

import (
	"context"
	"sync"

	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
)

// listConcurrently runs the count and the page query side by side.
func listConcurrently[T any](
	ctx context.Context,
	cfg *config.Config,
	resource string,
	count func(context.Context) (int64, error),
	find func(context.Context) ([]T, error),
) ([]T, int64, error) {
	var (
		total           int64
		items           []T
		errCount, errFn error
		wg              sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if total, err = count(ctx); err != nil {
			cfg.Log.Error("Failed to count "+resource, "error", err)
			errCount = apperrors.Internal("Failed to count "+resource, err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if items, err = find(ctx); err != nil {
			cfg.Log.Error("Failed to list "+resource, "error", err)
			errFn = apperrors.Internal("Failed to retrieve "+resource, err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFn != nil {
		return nil, 0, errFn
	}
	return items, total, nil
}
