// Package app provides the orchestration layer for the feeder application.
//
// # Overview
//
// This package is the composition root. It loads configuration and
// preferences, sets up logging and metrics, builds the Engine around the
// feeding API client and runs it next to the terminal UI and the optional
// admin server.
//
// # Engine
//
// Engine owns every stateful component and is the only thing the
// presentation layer talks to:
//
//   - ledger.Ledger: the point cache
//   - reconcile.Reconciler and reconcile.Stream: the change feed applied to
//     the cache, plus the authoritative CanBook check
//   - reservation.Coordinator: the Idle → Reserved → InProgress machine with
//     its snapshot store and countdown
//   - favorite.Toggle: optimistic favorite flips with rollback
//   - details.Service: the per-point detail view
//   - health.Tracker: change feed poll outcomes, read by the UI header and
//     the admin /healthz endpoint
//
// It exposes streams (PointsChanged, FavoriteChanged,
// ReservationStateChanged, Remaining, Notices, FavoriteFailures,
// Bookability) and intents (StartFeeding, FinishFeeding, CancelFeeding,
// ToggleFavorite, RecoverUnfinished, Details). It also satisfies
// admin.Source and ui.Engine.
//
// # Startup Order
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()             Read ~/.config/feeder/config.toml
//	       ├─────> prefs.EnsureDeviceID()    Generate and persist the device ID
//	       ├─────> logging.SetupDefault()    JSON logs to <state_dir>/feeder.log
//	       ├─────> metrics.NewCollector()    Private Prometheus registry
//	       ├─────> NewEngine()               Wire the components
//	       └─────> errgroup
//	               ├─> Engine.Run()
//	               │     ├─> Coordinator.Run()     actor goroutine
//	               │     ├─> RecoverUnfinished     before the first list
//	               │     ├─> Reconciler.Load()     full point list
//	               │     └─> Stream.Run() → Reconciler.Run()
//	               ├─> admin.Serve()         when admin_bind is set
//	               └─> ui.Run()              or wait for ctx when headless
//
// Recovery runs before the initial list load so the first rendered list
// already reflects a restored reservation. The change stream starts after
// the load; events that repeat the loaded records are dropped by the
// ledger's version check.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file unreadable or invalid
//   - Log file or device ID cannot be written
//   - Invalid api_base
//   - Admin server failing to bind
//
// Recoverable errors (logged, the engine keeps running):
//   - Initial list load failure; the change feed fills the cache later
//   - Change poll failures, retried with exponential backoff
//   - Unreadable or expired reservation snapshots, which are discarded
//
// Quitting the UI cancels the shared context, which stops the engine and
// the admin server.
//
// # Usage Example
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := app.Run(ctx, app.Options{Headless: true, LogStderr: true}); err != nil {
//		log.Fatalf("feeder failed: %v", err)
//	}
package app
