package middleware

import (
	"go.opentelemetry.io/otel"

	"habitus/pkg/logger"
)

// Init 初始化所有中间件
func Init() error {
	if err := InitHTTPMetrics(otel.Meter("habitus-http")); err != nil {
		return err
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
