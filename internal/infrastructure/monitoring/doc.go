/*
Package monitoring provides Prometheus metrics for the generation proxy and
the relay.

# Usage

	metrics := monitoring.NewMetrics("proxy")
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "openai")
	text, err := vendor.Complete(ctx, key, prompt)
	timer.Stop(outcome(err))
*/
package monitoring
