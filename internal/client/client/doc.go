// Package client is the HTTP/JSON client for the koulio auth API used by the
// CLI.
//
// # Overview
//
// HTTPClient wraps every public endpoint of the server (health, register,
// login, refresh, profile, change-password, delete-account, logout) and keeps
// the current access/refresh token pair in memory. Authenticated calls carry
// "Authorization: Bearer <access token>". When the server answers 401 with
// "Token has expired", the client refreshes the pair once and repeats the
// call. GET requests are retried with exponential backoff when the server
// cannot be reached.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Non-2xx answers are returned as
// *APIError; a 401 also matches ErrUnauthorized with errors.Is. Calls that
// need a session return ErrNotLoggedIn when no token is held.
package client
