//go:build basic || database

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/geochange/landchange/core/pipeline"
	"github.com/geochange/landchange/schema"
)

var (
	// sharedBinaryPath holds the path to a landchange binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the landchange binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "landchange-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binPath := filepath.Join(tempDir, "landchange")
		buildCmd := exec.Command("go", "build", "-o", binPath, "./cmd/landchange")
		buildCmd.Dir = ".." // Build from project root
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build landchange: %v\n%s", err, out))
		}
		sharedBinaryPath = binPath
	})

	return sharedBinaryPath
}

// startComputeService serves the scripted Kericho scenario over the remote compute protocol.
func startComputeService(t *testing.T) *httptest.Server {
	t.Helper()
	backend := pipeline.NewScenarioBackend()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/execute", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Expr *schema.Expr `json:"expr"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Expr == nil {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}
		v, err := backend.Execute(r.Context(), req.Expr)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": err.Error(), "retryable": false}})
			return
		}
		_ = json.NewEncoder(w).Encode(v)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// runLandchange runs the binary with args and extra LANDCHANGE_* settings, isolated from
// the user's home directory and config files.
func runLandchange(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "HOME="+cmd.Dir, "LOG_LEVEL=error")
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// remoteEnv points the binary at the scripted compute service.
func remoteEnv(ts *httptest.Server) map[string]string {
	return map[string]string{
		"LANDCHANGE_BACKEND":     "http",
		"LANDCHANGE_BACKEND_URL": ts.URL,
	}
}
