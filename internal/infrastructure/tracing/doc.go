/*
Package tracing follows one fill across the relay and the generation proxy.

The relay opens a trace per trigger and a span per stage (gather, generate,
deliver). The proxy call carries the X-Trace-ID and X-Span-ID headers, so the
proxy's identity, key store and vendor spans hang under the relay's generate
span and both processes' log lines can be joined on trace_id.

	span, ctx := tracer.StartSpan(ctx, "proxy.vendor")
	text, err := vendor.Complete(ctx, key, prompt)
	span.End(err)

Spans are logged by a collector goroutine; a full buffer drops spans rather
than blocking a request. A nil *Tracer is valid and records nothing.
*/
package tracing
