// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// the snippet service HTTP server, handling lifecycle and drain-on-shutdown.
//
// Example:
//
//	opts := serverrun.Options{DataDir: "./data", HTTPAddr: ":8080", Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
