package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"arena/internal/services"
	"arena/internal/services/remote"
)

// HealthChecker pings the processing service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// AIStatusChecker reports the AI providers configured on the service.
type AIStatusChecker interface {
	CheckAIStatus(ctx context.Context) (remote.AIStatus, error)
}

// CheckServer verifies the processing service answers its health endpoint.
func CheckServer(ctx context.Context, client HealthChecker) Result {
	const name = "Processing service"
	if client == nil {
		return Result{Name: name, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Health(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeServiceError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckAIProviders verifies at least one AI provider is configured. A run
// started without one is refused.
func CheckAIProviders(ctx context.Context, client AIStatusChecker) Result {
	const name = "AI providers"
	if client == nil {
		return Result{Name: name, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	status, err := client.CheckAIStatus(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeServiceError(err)}
	}
	if !status.Ready() {
		return Result{Name: name, Detail: "none configured"}
	}
	return Result{Name: name, Passed: true, Detail: strings.Join(status.Providers(), ", ")}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeServiceError produces a human-readable summary for service check failures.
func summarizeServiceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	details := services.Details(err)
	if msg := strings.TrimSpace(details.Message); msg != "" {
		return msg
	}
	return err.Error()
}
