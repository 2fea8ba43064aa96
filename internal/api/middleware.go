package api

import (
	"context"
	"fmt"
	"net/http"
)

// RequesterUserId is the header identifying the calling user. The
// caller is trusted, there is no credential verification behind it.
const requesterHeader = "RequesterUserId"

type contextKey string

const requesterKey contextKey = "requesterUserId"

func WithRequesterId(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, requesterKey, userId)
}

func RequesterId(ctx context.Context) (string, bool) {
	userId, ok := ctx.Value(requesterKey).(string)
	return userId, ok && userId != ""
}

func (s *ChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requesterMiddleware copies the RequesterUserId header into the
// request context. Handlers that need the requester reject requests
// where it is absent.
func (s *ChatApp) requesterMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequesterId(r.Context(), r.Header.Get(requesterHeader))
		next(w, r.WithContext(ctx))
	}
}
