package assets

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/keyurgolani/dotfiles-sub001/internal/module"
)

// githubRelease mirrors the fields of the GitHub release JSON we consume.
type githubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Fetcher downloads module-declared archives. Client is injectable so tests
// can point it at an httptest server.
type Fetcher struct {
	Client *http.Client
	// APIBase is the GitHub API root, overridable in tests.
	APIBase string
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) apiBase() string {
	if f.APIBase != "" {
		return f.APIBase
	}
	return "https://api.github.com"
}

// Resolve turns an asset declaration into a concrete download URL. Direct
// URLs pass through; otherwise the GitHub release for Repo@Tag is queried and
// the first asset whose name contains Pattern wins.
func (f *Fetcher) Resolve(a module.Asset) (string, error) {
	if a.URL != "" {
		return a.URL, nil
	}
	if a.Repo == "" || a.Tag == "" {
		return "", fmt.Errorf("asset %q declares neither url nor repo+tag", a.Name)
	}

	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", f.apiBase(), a.Repo, a.Tag)
	resp, err := f.client().Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch release %s@%s: %w", a.Repo, a.Tag, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch release %s@%s: HTTP %d", a.Repo, a.Tag, resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("decode release %s@%s: %w", a.Repo, a.Tag, err)
	}

	pattern := strings.ToLower(a.Pattern)
	for _, asset := range release.Assets {
		if pattern == "" || strings.Contains(strings.ToLower(asset.Name), pattern) {
			return asset.BrowserDownloadURL, nil
		}
	}
	return "", fmt.Errorf("release %s@%s has no asset matching %q", a.Repo, a.Tag, a.Pattern)
}

// Download saves the content at url into dir and returns the archive path.
func (f *Fetcher) Download(url, dir string) (string, error) {
	resp, err := f.client().Get(url)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}

	dest := filepath.Join(dir, path.Base(url))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}

// Install resolves, downloads, and extracts one asset into its target
// directory (~ already expanded by the caller).
func (f *Fetcher) Install(a module.Asset, target string) error {
	url, err := f.Resolve(a)
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", "dotfiles-asset-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	archive, err := f.Download(url, tmp)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("create target %s: %w", target, err)
	}
	return Extract(archive, target)
}
