package ctxutil

import "context"

type requestDataKey struct{}

// RequestData holds the authenticated caller, when auth is enabled.
type RequestData struct {
	RequesterID string
	Subject     string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}
