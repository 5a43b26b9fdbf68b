package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はpanic発生時にプロセスクラッシュを防ぎ、
// 500レスポンスを返すミドルウェアを生成する。
// exposeDetailがtrueの場合はpanicの内容をレスポンスのdetailに含める（開発モード用）。
func NewRecoveryMiddleware(exposeDetail bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					slog.Error("panic recovered",
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					var detail string
					if exposeDetail {
						detail = fmt.Sprint(rec)
					}
					WriteInternalServerError(w, detail)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
