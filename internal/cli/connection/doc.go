// Package connection provides the HTTP client used by tabsess-cli.
//
// The client speaks the TabSess JSON API: requests carry the acting
// user in the X-User-ID header, and responses arrive wrapped in the
// server's standard envelope (code, message, data). ParseResponse
// unwraps the envelope and surfaces server error codes as Go errors.
package connection
