package endpoint

import (
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
)

// HostPlaceholder is replaced by the detected hostname in a configured
// base-URL template, e.g. "http://${HOST_IP}:8000".
const HostPlaceholder = "${HOST_IP}"

const (
	// DefaultPort is the collector's default HTTP port.
	DefaultPort = 8000

	localhostHost = "localhost"
	loopbackHost  = "127.0.0.1"
)

// Resolve builds the ordered candidate list of collector base URLs.
//
// The order is: the configured template (with HostPlaceholder substituted by
// hostHint), the same-host default, localhost, then the loopback literal.
// Duplicates are dropped keeping the first occurrence. A template that does
// not yield an absolute http(s) URL is skipped; Resolve never fails and the
// result always holds at least the localhost and loopback entries.
func Resolve(hostHint, template string, port int) []string {
	if port <= 0 || port > 65535 {
		port = DefaultPort
	}
	hostHint = strings.TrimSpace(hostHint)

	raw := make([]string, 0, 4)
	if expanded, ok := expandTemplate(hostHint, template); ok {
		raw = append(raw, expanded)
	}
	if hostHint != "" {
		raw = append(raw, baseURL(hostHint, port))
	}
	raw = append(raw, baseURL(localhostHost, port), baseURL(loopbackHost, port))

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, candidate := range raw {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// Prefer returns a copy of candidates with active moved to the front. When
// active is empty or not among the candidates the order is unchanged.
func Prefer(candidates []string, active string) []string {
	out := make([]string, 0, len(candidates))
	found := false
	for _, c := range candidates {
		if c == active && active != "" {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		return slices.Clone(candidates)
	}
	return append([]string{active}, out...)
}

// DetectHostname returns the local hostname, or "localhost" when it cannot
// be determined.
func DetectHostname() string {
	name, err := os.Hostname()
	if err != nil || strings.TrimSpace(name) == "" {
		return localhostHost
	}
	return strings.TrimSpace(name)
}

// Resolver is the immutable input of a resolution pass. It is built once at
// startup; Candidates re-derives the order on every call.
type Resolver struct {
	HostHint string
	Template string
	Port     int
}

// Candidates returns the candidate list for this resolver.
func (r Resolver) Candidates() []string {
	return Resolve(r.HostHint, r.Template, r.Port)
}

func expandTemplate(hostHint, template string) (string, bool) {
	template = strings.TrimSpace(template)
	if template == "" {
		return "", false
	}
	if strings.Contains(template, HostPlaceholder) {
		if hostHint == "" {
			return "", false
		}
		template = strings.ReplaceAll(template, HostPlaceholder, hostHint)
	}
	if strings.Contains(template, "${") {
		return "", false
	}
	u, err := url.Parse(template)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Hostname() == "" {
		return "", false
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), true
}

func baseURL(host string, port int) string {
	u := url.URL{Scheme: "http", Host: joinHostPort(host, port)}
	return u.String()
}

func joinHostPort(host string, port int) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return host + ":" + strconv.Itoa(port)
}
