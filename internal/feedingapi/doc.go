// Package feedingapi provides an HTTP client for the feeding point API.
//
// # Overview
//
// This package is the remote boundary of the engine. It performs the four
// booking mutations, the bookability check, point and history reads, and the
// long-poll change feed. Everything above it depends on the Remote interface,
// so tests substitute an in-memory fake.
//
// The package is split into two files:
//
//   - client.go: HTTP client, request pacing and status mapping
//   - types.go: request and response envelopes mirroring the API schema
//
// # Client Usage
//
//	client, err := feedingapi.NewClient(cfg.APIBase, feedingapi.Options{
//		Token:    cfg.APIToken,
//		DeviceID: prefs.DeviceID,
//	})
//	if err != nil {
//		return fmt.Errorf("create api client: %w", err)
//	}
//	id, err := client.StartBooking(ctx, "point-1")
//
// # API Endpoints
//
//   - GET  /api/points
//   - GET  /api/points/{id}
//   - GET  /api/points/{id}/bookable
//   - GET  /api/points/{id}/history
//   - POST /api/points/{id}/bookings
//   - POST /api/points/{id}/bookings/finish
//   - POST /api/points/{id}/bookings/cancel
//   - PUT  /api/points/{id}/favorite
//   - GET  /api/changes?since=N&wait_ms=M
//
// # Request Handling
//
// All requests:
//   - Pass through a token-bucket limiter (golang.org/x/time/rate)
//   - Set Accept, User-Agent and, when configured, Authorization and X-Device-ID
//   - Use context for cancellation
//
// Mutations additionally carry a fresh Idempotency-Key (a UUID) so the
// server can collapse a retried request into the original one.
//
// # Error Handling
//
// Statuses are mapped onto the engine taxonomy in internal/model:
//
//	409          → model.ErrAlreadyBooked (wrapped)
//	400, 422     → *model.MutationRejectedError with the server message
//	429, 5xx     → *model.NetworkError (retryable)
//	transport    → *model.NetworkError (retryable)
//	other 4xx    → plain wrapped error
//
// Decode failures are returned as "decode response: ..." errors.
package feedingapi
