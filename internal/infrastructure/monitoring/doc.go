/*
Package monitoring provides Prometheus metrics for the graphics bootstrap.

# Overview

Each Metrics value owns its own prometheus.Registry so tests can build as
many collectors as they need. All recording methods accept a nil receiver.

# Usage

	metrics := monitoring.NewMetrics()

	timer := monitoring.NewTimer(metrics, "acquire")
	fb, err := acquirer.Acquire(desc)
	timer.Stop(err)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
