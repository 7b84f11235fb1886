// Package collector is the HTTP client for the honeypot collector API.
//
// A Client is stateless with respect to endpoints: the poller passes the
// candidate base URL on every call, so one Client serves the whole
// candidate list. Every failure is returned as a *ConnectivityError that
// wraps ErrConnectivity, classified as transport, status or decode.
package collector
