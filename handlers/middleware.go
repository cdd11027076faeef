package handlers

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"llm-chat-platform/logger"
	"llm-chat-platform/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader заголовок с идентификатором запроса
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware берет X-Request-ID клиента или генерирует новый
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		c.Set(logger.RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// RecoveryMiddleware перехватывает панику и отвечает 500 в формате ErrorResponse
func RecoveryMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				if r == http.ErrAbortHandler {
					panic(r)
				}
				log.Error("panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
					"request_id", c.GetString(logger.RequestIDKey),
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
					Error:  models.ErrorInternal,
					Detail: "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// NotFoundHandler ответ для неизвестных маршрутов
func NotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:  models.ErrorNotFound,
		Detail: "route " + c.Request.Method + " " + c.Request.URL.Path + " not found",
	})
}
