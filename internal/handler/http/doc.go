// Package http implements the HTTP transport of the clinic authentication
// service.
//
// It wires the /api/auth and /api/audit routes, decodes requests, and maps
// service error kinds onto status codes and JSON error bodies. Tracing,
// access logging, request metadata capture, bearer-token authentication and
// role checks run as middleware before requests reach the service layer.
package http
