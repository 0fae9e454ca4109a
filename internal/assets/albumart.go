package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const (
	artCacheSize    = 8
	artFetchTimeout = 10 * time.Second
)

var ErrNoAlbumArt = errors.New("no album art reference")

type artKey struct {
	ref  string
	size int
}

// FetchAlbumArt loads ref and crops it to a size x size square. ref may be an
// absolute URL, a server-relative path (joined to the base URL) or a local
// file.
func (r *Resolver) FetchAlbumArt(ctx context.Context, ref string, size int) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNoAlbumArt
	}

	var img image.Image
	if url, ok := r.artURL(ref); ok {
		data, err := r.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode album art: %w", err)
		}
	} else {
		var err error
		img, err = loadImageFile(ref)
		if err != nil {
			return nil, err
		}
	}

	if size <= 0 {
		return img, nil
	}
	return imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos), nil
}

func (r *Resolver) artURL(ref string) (string, bool) {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref, true
	}
	if strings.HasPrefix(ref, "/") && r.baseURL != "" {
		return r.baseURL + ref, true
	}
	return "", false
}

// AlbumArt never blocks. It returns the cached art for ref, or false while a
// background fetch is in flight or after it failed. Failed references are
// not retried until they fall out of the cache.
func (r *Resolver) AlbumArt(ref string, size int) (image.Image, bool) {
	key := artKey{ref: strings.TrimSpace(ref), size: size}
	if key.ref == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.art[key]; ok {
		return img, img != nil
	}
	if !r.inflight[key] {
		r.inflight[key] = true
		go r.loadArt(key)
	}
	return nil, false
}

func (r *Resolver) loadArt(key artKey) {
	ctx, cancel := context.WithTimeout(context.Background(), artFetchTimeout)
	defer cancel()

	img, err := r.FetchAlbumArt(ctx, key.ref, key.size)
	if err != nil {
		r.logger.Warn("album art unavailable", zap.String("ref", key.ref), zap.Error(err))
		img = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, key)
	r.art[key] = img
	r.artOrder = append(r.artOrder, key)
	for len(r.artOrder) > artCacheSize {
		delete(r.art, r.artOrder[0])
		r.artOrder = r.artOrder[1:]
	}
}
