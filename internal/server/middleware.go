package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-Id"
)

// requestID はリクエストごとに一意なIDを割り当てる
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestIDField はログ用のリクエストIDフィールドを返す
func requestIDField(c *gin.Context) zap.Field {
	return zap.String(requestIDKey, c.GetString(requestIDKey))
}

// accessLog はリクエストごとに1行のアクセスログを出力する
func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			requestIDField(c),
		}

		// クライアントの切断による書き込みエラーはサーバーの障害として扱わない
		if err := c.Errors.Last(); err != nil {
			logger.Debug("レスポンスの書き込みに失敗しました", append(fields, zap.Error(err.Err))...)
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

// recovery はハンドラ内のパニックを 500 レスポンスに変換する
func recovery(logger *zap.Logger, pages *errorPages) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			logger.Error("パニックから復帰しました",
				zap.Any("panic", r),
				zap.String("path", c.Request.URL.Path),
				requestIDField(c),
			)
			if !c.Writer.Written() {
				pages.internalError(c)
			}
			c.Abort()
		}()

		c.Next()
	}
}
