// Package httpserver provides the JSON REST surface for the snippet
// service: submission (through the deferred persistence buffer), reads, and
// buffer introspection endpoints.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
