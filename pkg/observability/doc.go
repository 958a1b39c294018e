/*
Package observability turns engine lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks; combine them with domain.ChainHooks
and install the result on the engine.
*/
package observability
