// Package api implements the JSON HTTP API: authentication,
// conversations, the chat endpoint and the admin panel.
//
// Responses use a uniform envelope: {"data": ...} on success and
// {"error": {"code", "message"}} on failure. Authentication is a
// server-side session referenced by an HMAC-signed cookie. All routes
// except register, login, models and the health probes require a
// session.
package api
