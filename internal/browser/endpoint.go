package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

type versionInfo struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// DiscoverEndpoint queries the browser's /json/version document on port.
func DiscoverEndpoint(ctx context.Context, client *http.Client, port int) (audit.Endpoint, error) {
	return discoverEndpoint(ctx, client, "localhost", port)
}

func discoverEndpoint(ctx context.Context, client *http.Client, host string, port int) (audit.Endpoint, error) {
	if port <= 0 {
		return audit.Endpoint{}, fmt.Errorf("invalid debugging port %d", port)
	}
	if client == nil {
		client = http.DefaultClient
	}
	target := fmt.Sprintf("http://%s/json/version", net.JoinHostPort(host, strconv.Itoa(port)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return audit.Endpoint{}, fmt.Errorf("build version request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return audit.Endpoint{}, fmt.Errorf("query %s: %w", target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return audit.Endpoint{}, fmt.Errorf("query %s: unexpected status %d", target, resp.StatusCode)
	}
	var info versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return audit.Endpoint{}, fmt.Errorf("decode version info: %w", err)
	}
	if info.WebSocketDebuggerURL == "" {
		return audit.Endpoint{}, fmt.Errorf("version info from %s has no websocket url", target)
	}
	return audit.Endpoint{
		Port:         port,
		WebSocketURL: info.WebSocketDebuggerURL,
		Browser:      info.Browser,
	}, nil
}

// freePort asks the kernel for an unused loopback port. The listener is
// closed immediately so Chrome can bind it.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("reserve debugging port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, fmt.Errorf("release debugging port: %w", err)
	}
	return port, nil
}
