package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peerdrive/peerdrive/pkg/daemon"
	"github.com/peerdrive/peerdrive/pkg/store/memory"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	d := daemon.New(memory.NewOpener())
	srv := httptest.NewServer(NewRouter(d))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d.Shutdown(ctx)
	})
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path string, body []byte) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("reading response body failed: %v", err)
	}
	return resp, data
}

func createDrive(t *testing.T, srv *httptest.Server) daemon.DriveInfo {
	t.Helper()
	resp, body := doRequest(t, srv, http.MethodPost, "/v1/drives", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create drive status = %d: %s", resp.StatusCode, body)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decoding envelope failed: %v", err)
	}
	var info daemon.DriveInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatalf("decoding drive info failed: %v", err)
	}
	return info
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestAPI(t)

	resp, _ := doRequest(t, srv, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("liveness status = %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, srv, http.MethodGet, "/health/ready", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("readiness status = %d", resp.StatusCode)
	}
}

func TestDriveLifecycleOverHTTP(t *testing.T) {
	srv := newTestAPI(t)

	info := createDrive(t, srv)
	if info.Handle != 1 || len(info.Key) != 64 {
		t.Errorf("created drive = %+v", info)
	}

	resp, _ := doRequest(t, srv, http.MethodGet, fmt.Sprintf("/v1/drives/%d", info.Handle), nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get drive status = %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/v1/drives/%d", info.Handle), nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("close drive status = %d", resp.StatusCode)
	}

	// Closing again conflicts; fetching reports not found.
	resp, _ = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/v1/drives/%d", info.Handle), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double close status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp, _ = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/v1/drives/%d", info.Handle), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get closed drive status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestFileRoundTripOverHTTP(t *testing.T) {
	srv := newTestAPI(t)
	info := createDrive(t, srv)

	content := []byte("hellothere friend")
	resp, body := doRequest(t, srv, http.MethodPut,
		fmt.Sprintf("/v1/drives/%d/file?path=docs/readme&uid=10&gid=20", info.Handle), content)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("write status = %d: %s", resp.StatusCode, body)
	}

	resp, body = doRequest(t, srv, http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/file?path=docs/readme", info.Handle), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read status = %d", resp.StatusCode)
	}
	if !bytes.Equal(body, content) {
		t.Errorf("read body = %q, want %q", body, content)
	}

	// Range read.
	resp, body = doRequest(t, srv, http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/file?path=docs/readme&offset=5&length=6", info.Handle), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("range read status = %d", resp.StatusCode)
	}
	if string(body) != "theref" {
		t.Errorf("range body = %q, want %q", body, "theref")
	}

	// Stat reflects the write options.
	resp, body = doRequest(t, srv, http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/stat?path=docs/readme", info.Handle), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stat status = %d", resp.StatusCode)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decoding stat envelope failed: %v", err)
	}
	var entry struct {
		Size uint64 `json:"size"`
		UID  uint32 `json:"uid"`
		GID  uint32 `json:"gid"`
	}
	if err := json.Unmarshal(env.Data, &entry); err != nil {
		t.Fatalf("decoding stat entry failed: %v", err)
	}
	if entry.Size != uint64(len(content)) || entry.UID != 10 || entry.GID != 20 {
		t.Errorf("stat entry = %+v", entry)
	}

	// Directory listing.
	resp, body = doRequest(t, srv, http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/dir?path=docs", info.Handle), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dir status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("decoding dir envelope failed: %v", err)
	}
	var names []string
	if err := json.Unmarshal(env.Data, &names); err != nil {
		t.Fatalf("decoding dir names failed: %v", err)
	}
	if len(names) != 1 || names[0] != "readme" {
		t.Errorf("dir listing = %v, want [readme]", names)
	}
}

func TestMountOverHTTP(t *testing.T) {
	srv := newTestAPI(t)
	a := createDrive(t, srv)
	b := createDrive(t, srv)

	mountBody, _ := json.Marshal(map[string]string{"path": "shared", "target_key": b.Key})
	resp, body := doRequest(t, srv, http.MethodPut,
		fmt.Sprintf("/v1/drives/%d/mounts", a.Handle), mountBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("mount status = %d: %s", resp.StatusCode, body)
	}

	resp, _ = doRequest(t, srv, http.MethodPut,
		fmt.Sprintf("/v1/drives/%d/file?path=shared/x", a.Handle), []byte("through"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("write through mount status = %d", resp.StatusCode)
	}
	resp, body = doRequest(t, srv, http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/file?path=x", b.Handle), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read on target status = %d", resp.StatusCode)
	}
	if string(body) != "through" {
		t.Errorf("target content = %q", body)
	}

	// Self-mount is a cycle.
	cycleBody, _ := json.Marshal(map[string]string{"path": "loop", "target_key": a.Key})
	resp, _ = doRequest(t, srv, http.MethodPut,
		fmt.Sprintf("/v1/drives/%d/mounts", a.Handle), cycleBody)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("cycle mount status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	resp, _ = doRequest(t, srv, http.MethodDelete,
		fmt.Sprintf("/v1/drives/%d/mounts?path=shared", a.Handle), nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unmount status = %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, srv, http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/file?path=shared/x", a.Handle), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("read after unmount status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestAPI(t)
	info := createDrive(t, srv)

	resp, _ := doRequest(t, srv, http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/file?path=missing", info.Handle), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing file status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	resp, _ = doRequest(t, srv, http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/file?path=../escape", info.Handle), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("escaping path status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp, _ = doRequest(t, srv, http.MethodGet, "/v1/drives/notanumber", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad handle status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestSymlinkOverHTTP(t *testing.T) {
	srv := newTestAPI(t)
	info := createDrive(t, srv)

	resp, _ := doRequest(t, srv, http.MethodPut,
		fmt.Sprintf("/v1/drives/%d/file?path=data/orig", info.Handle), []byte("linked"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("write status = %d", resp.StatusCode)
	}

	linkBody, _ := json.Marshal(map[string]string{"target": "data/orig", "link": "alias"})
	resp, body := doRequest(t, srv, http.MethodPost,
		fmt.Sprintf("/v1/drives/%d/symlink", info.Handle), linkBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("symlink status = %d: %s", resp.StatusCode, body)
	}

	resp, body = doRequest(t, srv, http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/file?path=alias", info.Handle), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read through link status = %d", resp.StatusCode)
	}
	if string(body) != "linked" {
		t.Errorf("link content = %q", body)
	}
}
