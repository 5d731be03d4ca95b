package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// SupportedExtensions lists the source extensions picked up by ScanSources.
var SupportedExtensions = []string{".mp3", ".mp4", ".opus", ".wav", ".m4a"}

var videoExtensions = map[string]bool{
	".mp4": true,
}

// MediaFile is a discovered source recording.
type MediaFile struct {
	Path    string
	Kind    MediaKind
	Ext     string
	Size    int64
	ModTime time.Time
}

func (m MediaFile) Name() string {
	return filepath.Base(m.Path)
}

// BaseName returns the file name without its extension.
func (m MediaFile) BaseName() string {
	return strings.TrimSuffix(filepath.Base(m.Path), filepath.Ext(m.Path))
}

func (m MediaFile) IsVideo() bool {
	return m.Kind == MediaKindVideo
}

// NewMediaFile stats path and infers its kind from the extension.
func NewMediaFile(path string) (MediaFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MediaFile{}, Wrap(ErrPrecondition, "source", "stat "+path, err)
	}
	if info.IsDir() {
		return MediaFile{}, Wrap(ErrPrecondition, "source", path+" is a directory", nil)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !isSupportedExtension(ext) {
		return MediaFile{}, Wrap(ErrPrecondition, "source", fmt.Sprintf("unsupported extension %q", ext), nil)
	}
	kind := MediaKindAudio
	if videoExtensions[ext] {
		kind = MediaKindVideo
	}
	return MediaFile{Path: path, Kind: kind, Ext: ext, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// ScanSources lists supported media files directly inside dir, newest first.
func ScanSources(dir string) ([]MediaFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Wrap(ErrPrecondition, "sources", fmt.Sprintf("%s folder not found", dir), nil)
		}
		return nil, Wrap(ErrPrecondition, "sources", "read "+dir, err)
	}

	var files []MediaFile
	for _, entry := range entries {
		if entry.IsDir() || !isSupportedExtension(strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		file, err := NewMediaFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	if len(files) == 0 {
		return nil, Wrap(ErrPrecondition, "sources", fmt.Sprintf("no audio or video files found in %s", dir), nil)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Path < files[j].Path
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

func isSupportedExtension(ext string) bool {
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
