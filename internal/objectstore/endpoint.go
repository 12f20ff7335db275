package objectstore

import "strings"

// NormalizeEndpoint promotes a bare host[:port] endpoint to a full URL
// and corrects protocol/port mismatches (https on :80, http on :443).
// An empty input stays empty, meaning the default public-cloud endpoint.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}

	hasHTTP := strings.HasPrefix(endpoint, "http://")
	hasHTTPS := strings.HasPrefix(endpoint, "https://")

	if hasHTTP || hasHTTPS {
		host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
		switch {
		case strings.Contains(host, ":443") && hasHTTP:
			return "https://" + host
		case strings.Contains(host, ":80") && hasHTTPS:
			return "http://" + host
		default:
			return endpoint
		}
	}

	// Bare host[:port]: https unless the port says otherwise.
	if strings.Contains(endpoint, ":80") && !strings.Contains(endpoint, ":443") {
		return "http://" + endpoint
	}
	return "https://" + endpoint
}
