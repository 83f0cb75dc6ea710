//go:build integration
// +build integration

package integration

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

func getProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "../.."
	}
	// Walk up until we find go.mod
	for dir != "/" {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		dir = filepath.Dir(dir)
	}
	return "../.."
}

// getBinaryPath returns LABELORD_BINARY or builds the CLI once per test
func getBinaryPath(t *testing.T) string {
	t.Helper()

	binaryPath := os.Getenv("LABELORD_BINARY")
	if binaryPath != "" {
		if !filepath.IsAbs(binaryPath) {
			binaryPath = filepath.Join(getProjectRoot(), binaryPath)
		}
		return binaryPath
	}

	binaryPath = filepath.Join(t.TempDir(), "labelord-test")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/labelord")
	buildCmd.Dir = getProjectRoot()
	var buildOut bytes.Buffer
	buildCmd.Stdout = &buildOut
	buildCmd.Stderr = &buildOut
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("Failed to build binary: %v\nOutput: %s", err, buildOut.String())
	}
	return binaryPath
}

type cliResult struct {
	stdout string
	stderr string
	code   int
}

// runBinary runs the CLI with a clean environment
func runBinary(t *testing.T, binaryPath string, args ...string) cliResult {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = cleanEnv()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := cliResult{}
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.code = exitErr.ExitCode()
	case err != nil:
		t.Fatalf("Failed to run %v: %v", args, err)
	}
	result.stdout = stdout.String()
	result.stderr = stderr.String()
	return result
}

func cleanEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "GITHUB_TOKEN=") || strings.HasPrefix(kv, "LABELORD_CONFIG=") {
			continue
		}
		env = append(env, kv)
	}
	return env
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cfg")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func signPayload(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type apiLabel struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// fakeGitHub serves the subset of the REST API labelord uses
type fakeGitHub struct {
	mu     sync.Mutex
	token  string
	repos  map[string]map[string]string
	calls  []string
	server *httptest.Server
}

func newFakeGitHub(t *testing.T, token string, repos map[string]map[string]string) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{token: token, repos: repos}

	router := mux.NewRouter()
	router.Use(f.authenticate)
	router.HandleFunc("/user/repos", f.listRepos).Methods(http.MethodGet)
	router.HandleFunc("/repos/{owner}/{repo}/labels", f.listLabels).Methods(http.MethodGet)
	router.HandleFunc("/repos/{owner}/{repo}/labels", f.createLabel).Methods(http.MethodPost)
	router.HandleFunc("/repos/{owner}/{repo}/labels/{name}", f.updateLabel).Methods(http.MethodPatch)
	router.HandleFunc("/repos/{owner}/{repo}/labels/{name}", f.deleteLabel).Methods(http.MethodDelete)

	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) URL() string {
	return f.server.URL + "/"
}

func (f *fakeGitHub) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func (f *fakeGitHub) Labels(repo string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for name, color := range f.repos[repo] {
		out[name] = color
	}
	return out
}

func (f *fakeGitHub) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeGitHub) repo(w http.ResponseWriter, r *http.Request) (string, map[string]string, bool) {
	vars := mux.Vars(r)
	slug := vars["owner"] + "/" + vars["repo"]
	labels, ok := f.repos[slug]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	}
	return slug, labels, ok
}

func (f *fakeGitHub) listRepos(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var slugs []string
	for slug := range f.repos {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	out := make([]map[string]string, 0, len(slugs))
	for _, slug := range slugs {
		out = append(out, map[string]string{"full_name": slug})
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeGitHub) listLabels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, labels, ok := f.repo(w, r)
	if !ok {
		return
	}
	out := make([]apiLabel, 0, len(labels))
	for name, color := range labels {
		out = append(out, apiLabel{Name: name, Color: color})
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeGitHub) createLabel(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slug, labels, ok := f.repo(w, r)
	if !ok {
		return
	}
	var body apiLabel
	_ = json.NewDecoder(r.Body).Decode(&body)
	labels[body.Name] = body.Color
	f.calls = append(f.calls, "create "+slug+" "+body.Name+" "+body.Color)
	writeJSON(w, http.StatusCreated, body)
}

func (f *fakeGitHub) updateLabel(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slug, labels, ok := f.repo(w, r)
	if !ok {
		return
	}
	oldName := mux.Vars(r)["name"]
	var body apiLabel
	_ = json.NewDecoder(r.Body).Decode(&body)
	delete(labels, oldName)
	labels[body.Name] = body.Color
	f.calls = append(f.calls, "update "+slug+" "+oldName+"->"+body.Name+" "+body.Color)
	writeJSON(w, http.StatusOK, body)
}

func (f *fakeGitHub) deleteLabel(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slug, labels, ok := f.repo(w, r)
	if !ok {
		return
	}
	name := mux.Vars(r)["name"]
	delete(labels, name)
	f.calls = append(f.calls, "delete "+slug+" "+name)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
