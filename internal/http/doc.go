// Package http provides HTTP handlers and middleware for the booking API.
//
// The router exposes the following endpoints:
//   - GET /api/slots?date=YYYY-MM-DD: lists the open, availability-checked
//     slots for a date. Public; customers call this while booking.
//   - POST /api/meetings: books a meeting into a slot. Public. Body is the
//     `meetingRequest` payload defined in meeting_handler.go.
//   - GET /api/meetings/pending: lists meetings waiting for a claim.
//     Requires a team session.
//   - POST /api/meetings/{id}/assign: claims a pending meeting for the
//     authenticated team member. Exactly one concurrent claimer wins; the
//     rest receive 409 Conflict.
//   - GET /api/team-members, POST /api/team-members: team roster endpoints
//     exchanging the `memberDTO` payload defined in team_handler.go. Listing
//     is ordered by ascending meeting count.
//   - POST /api/team-members/{id}/calendar: stores calendar tokens for a
//     member.
//   - GET /auth/google, GET /auth/google/callback: the OAuth sign-in flow.
//     The callback issues the session token returned in `authResponse` and a
//     `session_token` cookie.
//   - GET /healthz: liveness probe that pings the backing store.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
