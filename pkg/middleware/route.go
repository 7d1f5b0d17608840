package middleware

import "github.com/julienschmidt/httprouter"

// RouteMiddleware decorates a single httprouter route.
type RouteMiddleware func(httprouter.Handle) httprouter.Handle

// Route applies mws to h. The first middleware listed runs first.
func Route(h httprouter.Handle, mws ...RouteMiddleware) httprouter.Handle {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
