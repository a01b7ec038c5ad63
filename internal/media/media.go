// Package media archives a business record's images to disk: the hero
// photo, gallery tiles and menu photos. Downloads stream straight to
// files and run on a small worker pool.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/map-harvest/harvest/pkg/models"
)

// Result describes one download attempt.
type Result struct {
	URL      string
	FilePath string
	Size     int64
	Err      error
	Duration time.Duration
}

// Downloader fetches images concurrently into a base directory, one
// subdirectory per business fingerprint.
type Downloader struct {
	client      *http.Client
	userAgent   string
	baseDir     string
	concurrency int
}

func New(baseDir string, concurrency int, timeout time.Duration, userAgent string) *Downloader {
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Downloader{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:   userAgent,
		baseDir:     baseDir,
		concurrency: concurrency,
	}
}

// ImageURLs collects every image URL a business record carries, in a
// stable order and without duplicates.
func ImageURLs(b *models.Business) []string {
	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}

	add(b.ImageURL)
	for _, u := range b.GalleryImages {
		add(u)
	}
	for _, item := range b.MenuItems {
		add(item.ImageURL)
	}
	return urls
}

// DownloadBusiness archives every image of the record under
// <baseDir>/<fingerprint>/. Individual failures land in the results,
// not in an error.
func (d *Downloader) DownloadBusiness(ctx context.Context, b *models.Business) ([]Result, error) {
	urls := ImageURLs(b)
	if len(urls) == 0 {
		return nil, nil
	}

	dir := filepath.Join(d.baseDir, b.Fingerprint)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	return d.downloadBatch(ctx, urls, dir), nil
}

func (d *Downloader) downloadBatch(ctx context.Context, urls []string, dir string) []Result {
	jobs := make(chan int, len(urls))
	results := make([]Result, len(urls))

	var wg sync.WaitGroup
	workers := d.concurrency
	if workers > len(urls) {
		workers = len(urls)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					results[i] = Result{URL: urls[i], Err: ctx.Err()}
					continue
				}
				results[i] = d.download(ctx, urls[i], filepath.Join(dir, fileName(i, urls[i])))
			}
		}()
	}

	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (d *Downloader) download(ctx context.Context, imageURL, path string) Result {
	start := time.Now()
	res := Result{URL: imageURL, FilePath: path}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		res.Err = fmt.Errorf("build request: %w", err)
		res.Duration = time.Since(start)
		return res
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("request failed: %w", err)
		res.Duration = time.Since(start)
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		res.Err = fmt.Errorf("bad status: %s", resp.Status)
		res.Duration = time.Since(start)
		return res
	}

	out, err := os.Create(path)
	if err != nil {
		res.Err = fmt.Errorf("create file: %w", err)
		res.Duration = time.Since(start)
		return res
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		os.Remove(path)
		res.Err = fmt.Errorf("write file: %w", err)
		res.Duration = time.Since(start)
		return res
	}

	res.Size = n
	res.Duration = time.Since(start)
	log.Debug().Str("url", imageURL).Str("file", path).Int64("bytes", n).Msg("image archived")
	return res
}

// fileName derives a stable, traversal-safe name from the image URL.
// Photo URLs rarely carry a usable basename, so the index anchors
// ordering and the URL tail disambiguates.
func fileName(index int, imageURL string) string {
	base := ""
	if u, err := url.Parse(imageURL); err == nil {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		base = parts[len(parts)-1]
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, base)
	base = strings.Trim(base, "._")
	if len(base) > 80 {
		base = base[:80]
	}
	if base == "" {
		return fmt.Sprintf("%03d.jpg", index)
	}
	if filepath.Ext(base) == "" {
		base += ".jpg"
	}
	return fmt.Sprintf("%03d-%s", index, base)
}
