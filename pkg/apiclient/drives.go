package apiclient

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
)

// Drive represents one open drive session.
type Drive struct {
	Handle uint64 `json:"handle"`
	Key    string `json:"key"`
}

// Mount represents one mount point in a drive's namespace.
type Mount struct {
	Path      string `json:"path"`
	TargetKey string `json:"target_key"`
}

// Entry is the metadata of one filesystem entry.
type Entry struct {
	Size        uint64 `json:"size"`
	UID         uint32 `json:"uid"`
	GID         uint32 `json:"gid"`
	Mode        uint32 `json:"mode"`
	IsDirectory bool   `json:"is_directory"`
}

// mountRequest is the body for mount creation.
type mountRequest struct {
	Path      string `json:"path"`
	TargetKey string `json:"target_key"`
}

// symlinkRequest is the body for symlink creation.
type symlinkRequest struct {
	Target string `json:"target"`
	Link   string `json:"link"`
}

// CreateDrive allocates a new drive.
func (c *Client) CreateDrive() (*Drive, error) {
	var drive Drive
	if err := c.post("/v1/drives", nil, &drive); err != nil {
		return nil, err
	}
	return &drive, nil
}

// ListDrives returns every open drive.
func (c *Client) ListDrives() ([]Drive, error) {
	var drives []Drive
	if err := c.get("/v1/drives", &drives); err != nil {
		return nil, err
	}
	return drives, nil
}

// GetDrive returns a drive by handle.
func (c *Client) GetDrive(handle uint64) (*Drive, error) {
	var drive Drive
	if err := c.get(fmt.Sprintf("/v1/drives/%d", handle), &drive); err != nil {
		return nil, err
	}
	return &drive, nil
}

// CloseDrive closes the drive session.
func (c *Client) CloseDrive(handle uint64) error {
	return c.delete(fmt.Sprintf("/v1/drives/%d", handle))
}

// CreateMount splices the drive identified by targetKey into the namespace
// of the drive identified by handle.
func (c *Client) CreateMount(handle uint64, path, targetKey string) error {
	return c.put(fmt.Sprintf("/v1/drives/%d/mounts", handle), mountRequest{
		Path:      path,
		TargetKey: targetKey,
	}, nil)
}

// DeleteMount removes the mount point at path.
func (c *Client) DeleteMount(handle uint64, path string) error {
	return c.delete(fmt.Sprintf("/v1/drives/%d/mounts?path=%s", handle, url.QueryEscape(path)))
}

// ListMounts returns the mount points of a drive.
func (c *Client) ListMounts(handle uint64) ([]Mount, error) {
	var mounts []Mount
	if err := c.get(fmt.Sprintf("/v1/drives/%d/mounts", handle), &mounts); err != nil {
		return nil, err
	}
	return mounts, nil
}

// Stat returns entry metadata.
func (c *Client) Stat(handle uint64, path string) (*Entry, error) {
	var entry Entry
	if err := c.get(fmt.Sprintf("/v1/drives/%d/stat?path=%s", handle, url.QueryEscape(path)), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Readdir lists child names of a directory.
func (c *Client) Readdir(handle uint64, path string) ([]string, error) {
	var names []string
	if err := c.get(fmt.Sprintf("/v1/drives/%d/dir?path=%s", handle, url.QueryEscape(path)), &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ReadFile reads the whole file at path.
func (c *Client) ReadFile(handle uint64, path string) ([]byte, error) {
	return c.doRaw(http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/file?path=%s", handle, url.QueryEscape(path)), nil)
}

// ReadRange reads length bytes from offset. A negative length reads to
// end-of-file.
func (c *Client) ReadRange(handle uint64, path string, offset, length int64) ([]byte, error) {
	return c.doRaw(http.MethodGet,
		fmt.Sprintf("/v1/drives/%d/file?path=%s&offset=%d&length=%d",
			handle, url.QueryEscape(path), offset, length), nil)
}

// WriteFile writes data as the whole content of the file at path.
func (c *Client) WriteFile(handle uint64, path string, data []byte) error {
	_, err := c.doRaw(http.MethodPut,
		fmt.Sprintf("/v1/drives/%d/file?path=%s", handle, url.QueryEscape(path)),
		bytes.NewReader(data))
	return err
}

// Symlink records a link entry at link pointing at target.
func (c *Client) Symlink(handle uint64, target, link string) error {
	return c.post(fmt.Sprintf("/v1/drives/%d/symlink", handle), symlinkRequest{
		Target: target,
		Link:   link,
	}, nil)
}
