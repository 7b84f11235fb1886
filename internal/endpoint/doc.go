// Package endpoint builds the ordered list of collector base URLs that the
// poller tries on every cycle.
//
// The collector's address is not known at build time. Candidates come from,
// in trial order:
//
//  1. The configured api_url template, with ${HOST_IP} replaced by the local
//     hostname (skipped if it does not produce an absolute http(s) URL)
//  2. http://<hostname>:<port>
//  3. http://localhost:<port>
//  4. http://127.0.0.1:<port>
//
// Resolve is pure; a Resolver captures its inputs once at startup so the
// polling loop never reads the environment.
package endpoint
