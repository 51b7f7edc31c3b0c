// Package shutdown coordinates daemon termination.
//
// The daemon stops on SIGINT/SIGTERM or when its context ends (for example
// when the session terminates after a logout). Registered hooks then run in
// reverse order under one deadline:
//
//	h := shutdown.NewHandler(10*time.Second, logger)
//	h.OnShutdown("session", manager.Shutdown)
//	err := h.Wait(ctx)
package shutdown
