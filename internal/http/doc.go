// Package http exposes the volunteer scheduling dashboard as a JSON API on a
// chi router.
//
// Session tokens travel in the `session_token` cookie or an
// `Authorization: Bearer` header.
//
//   - POST /sessions: sign in with {"username","password"}. Responds with
//     {"token","expires_at","session"}; the token is also set as a cookie and
//     in the `X-Session-Token` header. Rate limited per client IP.
//   - DELETE /sessions/current: revokes the presented token and clears the cookie.
//   - GET /me: the session object plus the navigation sections of its role.
//   - GET /dashboard: counters for the dashboard cards.
//   - /departments, /members, /services, /users: CRUD endpoints exchanging
//     the DTOs defined next to each handler. GET /departments?scope=mine limits a
//     leader to their departments; GET /members?department_id= filters members.
//   - /schedules?month=YYYY-MM&department=all|id: schedules grouped by date,
//     plus CRUD on /schedules/{id}.
//   - GET /schedules/export?month=&department=&format=html|markdown|csv:
//     downloadable schedule document.
//   - POST /maintenance/day-of-week: recomputes stored weekdays.
//   - GET /healthz: liveness.
//
// Errors are JSON {"error_code","message","errors"} with Portuguese messages.
package http
