// Package runtime wires storage, config, the event journal and the
// persistence buffer into a single-node instance. It exposes Open/Close,
// basic health checks, and accessors used by higher-level services.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: cfg})
//	defer rt.Close(context.Background())
//	_ = rt.CheckHealth(context.Background())
package runtime
