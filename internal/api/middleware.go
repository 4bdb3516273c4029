package api

import (
	"fmt"
	"net/http"
)

// errorHandler recovers panics from downstream handlers and converts
// them into a 500 response on a connection marked for closing.
func (s *CollabApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			s.log.Printf("panic: %v", err)

			errResp := NewInternalServerError(err)
			w.Header().Set("Connection", "close")
			s.writeJson(w, errResp.StatusCode, errResp)
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *CollabApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deny := func() {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
		}

		tokenCookie, err := r.Cookie(tokenCookieKey)
		if err != nil {
			deny()
			return
		}

		userId, err := s.extractUserIdFromToken(tokenCookie.Value)
		if err != nil {
			s.log.Printf("failed to extract user id from token: %v", err)
			deny()
			return
		}

		ctx := WithUserId(r.Context(), userId)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
