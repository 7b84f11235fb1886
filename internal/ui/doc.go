// Package ui provides the honeywatch terminal dashboard.
//
// The dashboard is a Bubble Tea program that never talks to the collector
// itself. It reads snapshots from the sync state store on a one second tick
// and renders one of three bodies:
//
//   - Loading: a spinner until the first poll cycle settles.
//   - Error: the exhausted-candidates message with a retry action, shown
//     only when no cycle has ever succeeded.
//   - Dashboard: summary cards (total attempts, unique IPs, status) above
//     the records table. A failed refresh keeps the previous records on
//     screen under a banner.
//
// Retry (r) calls the Trigger supplied in Options, which asks the poller for
// an out-of-band cycle. The logs view (l) tails the honeywatch log file
// through the logtail package.
//
// # Key Bindings
//
//   - d / esc: Dashboard
//   - l: Logs
//   - r: Retry now
//   - j/k, g/G, ctrl+d/u, pgup/pgdown: Scroll
//   - Space: Toggle log follow mode
//   - p: Show the poll cycle phase in the header
//   - T: Cycle theme (saved to prefs)
//   - h or ?: Help
//   - e or Ctrl+C: Exit
package ui
