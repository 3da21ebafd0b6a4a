// Package handler provides HTTP request handlers for TabSess.
//
// This package implements the HTTP API endpoints for dataset
// registration, editing sessions, and the transformations applied
// within them. Caller identity arrives in the X-User-ID header;
// authenticating that identity is the job of the deployment's edge,
// not of this package.
package handler
