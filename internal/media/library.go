// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media resolves catalog entries to readable video files below the
// configured media root.
package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/reelbox/internal/domain"
	"github.com/ManuGH/reelbox/internal/log"
)

// VideoLookup is the catalog view the library needs.
type VideoLookup interface {
	Video(ctx context.Context, id string) (domain.Video, error)
}

// File describes a resolved video file.
type File struct {
	VideoID     string
	Path        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Library maps video ids to files on an afero filesystem rooted at the
// media directory.
type Library struct {
	fs     afero.Fs
	videos VideoLookup
}

// NewLibrary roots the library at dir on the host filesystem.
func NewLibrary(dir string, videos VideoLookup) *Library {
	return NewLibraryFs(afero.NewBasePathFs(afero.NewOsFs(), dir), videos)
}

// NewLibraryFs uses fsys as the media root. Tests pass afero.NewMemMapFs().
func NewLibraryFs(fsys afero.Fs, videos VideoLookup) *Library {
	return &Library{fs: fsys, videos: videos}
}

// Resolve looks the video up and stats its file.
func (l *Library) Resolve(ctx context.Context, videoID string) (File, error) {
	id, err := domain.ParseID(videoID)
	if err != nil {
		return File{}, err
	}
	v, err := l.videos.Video(ctx, id)
	if err != nil {
		return File{}, err
	}

	rel, err := cleanReference(v.File)
	if err != nil {
		log.WithComponentFromContext(ctx, "media").Warn().
			Str(log.FieldEvent, "media.reference_rejected").
			Str(log.FieldVideoID, id).
			Str("reference", v.File).
			Msg("file reference rejected")
		return File{}, fmt.Errorf("%w: file for video %s", domain.ErrNotFound, id)
	}

	info, err := l.fs.Stat(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, fmt.Errorf("%w: file for video %s", domain.ErrNotFound, id)
		}
		return File{}, fmt.Errorf("stat media file for video %s: %w", id, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%w: file for video %s", domain.ErrNotFound, id)
	}

	return File{
		VideoID:     id,
		Path:        rel,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: ContentType(rel),
	}, nil
}

// Open resolves the video and opens a read handle. The caller must close it.
func (l *Library) Open(ctx context.Context, videoID string) (File, afero.File, error) {
	f, err := l.Resolve(ctx, videoID)
	if err != nil {
		return File{}, nil, err
	}
	h, err := l.fs.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, nil, fmt.Errorf("%w: file for video %s", domain.ErrNotFound, f.VideoID)
		}
		return File{}, nil, fmt.Errorf("open media file for video %s: %w", f.VideoID, err)
	}
	return f, h, nil
}

var errUnsafeReference = errors.New("unsafe file reference")

// cleanReference turns a stored file reference into a root-relative path,
// rejecting anything that could leave the media root.
func cleanReference(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" || isPathTraversal(ref) {
		return "", errUnsafeReference
	}
	p := path.Clean("/" + filepath.ToSlash(ref))
	if p == "/" {
		return "", errUnsafeReference
	}
	return filepath.FromSlash(p), nil
}

// isPathTraversal decodes the input a few times to catch double encoding,
// applies NFC normalization and reports parent segments, NULs and overlong
// dot encodings. Names merely containing dots ("Wait...What.mp4") pass.
func isPathTraversal(p string) bool {
	decoded := p
	for i := 0; i < 3; i++ {
		prev := decoded
		if d, err := url.PathUnescape(decoded); err == nil {
			decoded = d
		}
		if decoded == prev {
			break
		}
	}

	for _, candidate := range []string{strings.ToLower(p), strings.ToLower(decoded)} {
		for _, pat := range []string{"%c0%ae", "%e0%80%ae"} {
			if strings.Contains(candidate, pat) {
				return true
			}
		}
	}
	if strings.IndexByte(decoded, 0x00) >= 0 {
		return true
	}
	for _, candidate := range []string{p, norm.NFC.String(decoded)} {
		if hasParentSegment(candidate) {
			return true
		}
	}
	return false
}

func hasParentSegment(p string) bool {
	segments := strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
	for _, seg := range segments {
		if strings.TrimSpace(seg) == ".." {
			return true
		}
	}
	return false
}
