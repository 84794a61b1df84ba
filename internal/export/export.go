// Package export packs a repository snapshot into a ZIP archive: a threads.json
// manifest plus one text file per conversation, grouped by thread title.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"threadshelf/internal/model"
	"threadshelf/internal/repo"
)

const (
	ManifestName    = "threads.json"
	UnthreadedLabel = "unthreaded"
	modsSuffix      = "_modifications"
)

var ErrArchiveGeneration = errors.New("archive generation failed")

// ArchiveError is the single error surfaced for any failure while building or
// writing an archive.
type ArchiveError struct {
	Op  string
	Err error
}

func (e *ArchiveError) Error() string {
	if e.Err == nil {
		return ErrArchiveGeneration.Error() + ": " + e.Op
	}
	return ErrArchiveGeneration.Error() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *ArchiveError) Unwrap() error { return e.Err }

func (e *ArchiveError) Is(target error) bool { return target == ErrArchiveGeneration }

func archiveErr(op string, err error) error {
	var ae *ArchiveError
	if errors.As(err, &ae) {
		return err
	}
	return &ArchiveError{Op: op, Err: err}
}

type WriteOptions struct {
	Overwrite bool
	// Now stamps archive entries; zero means time.Now.
	Now time.Time
}

type WriteResult struct {
	Path      string   `json:"path"`
	Entries   []string `json:"entries"`
	Threads   int      `json:"threads"`
	Bytes     int64    `json:"bytes"`
	Orphans   int      `json:"unthreaded"`
	Generated string   `json:"generatedAt"`
}

// DefaultFileName is the archive name used when the caller gives none.
func DefaultFileName(now time.Time) string {
	return "threadshelf-export-" + now.Format("20060102-150405") + ".zip"
}

// SanitizeName replaces every character outside [A-Za-z0-9] with '_'.
func SanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// folderName keeps the thread title readable but strips anything that would
// escape or nest inside the archive.
func folderName(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, title)
	switch title {
	case "", ".", "..":
		return "_"
	}
	return title
}

// Build writes the archive for snap to w and returns the entry names in order.
func Build(w io.Writer, snap repo.Snapshot, now time.Time) ([]string, error) {
	if now.IsZero() {
		now = time.Now()
	}
	zw := zip.NewWriter(w)
	entries := []string{}

	add := func(name string, body []byte) error {
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return err
		}
		if _, err := f.Write(body); err != nil {
			return err
		}
		entries = append(entries, name)
		return nil
	}

	threads := snap.Threads
	if threads == nil {
		threads = []model.Thread{}
	}
	manifest, err := json.MarshalIndent(threads, "", "  ")
	if err != nil {
		return nil, archiveErr("manifest", err)
	}
	if err := add(ManifestName, manifest); err != nil {
		return nil, archiveErr("manifest", err)
	}

	titles := make(map[string]string, len(threads))
	for _, t := range threads {
		titles[t.ID] = t.Title
	}

	used := map[string]bool{ManifestName: true}
	for _, c := range snap.Conversations {
		folder := UnthreadedLabel
		if title, ok := titles[c.ThreadID]; ok {
			folder = folderName(title)
		}
		base := uniqueBase(used, folder, SanitizeName(c.Title), c.Modifications != "")

		if err := add(base+".txt", []byte(c.Content)); err != nil {
			return nil, archiveErr(c.ID, err)
		}
		if c.Modifications != "" {
			if err := add(base+modsSuffix+".txt", []byte(c.Modifications)); err != nil {
				return nil, archiveErr(c.ID, err)
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, archiveErr("finalize", err)
	}
	return entries, nil
}

// uniqueBase picks folder/name, folder/name_2, ... so that neither the content
// file nor its modifications sibling collides with an earlier entry.
func uniqueBase(used map[string]bool, folder string, name string, withMods bool) string {
	for n := 1; ; n++ {
		candidate := folder + "/" + name
		if n > 1 {
			candidate += "_" + strconv.Itoa(n)
		}
		if used[candidate+".txt"] {
			continue
		}
		if withMods && used[candidate+modsSuffix+".txt"] {
			continue
		}
		used[candidate+".txt"] = true
		if withMods {
			used[candidate+modsSuffix+".txt"] = true
		}
		return candidate
	}
}

// WriteFile builds the archive into a temp file next to path and renames it
// into place. On failure nothing is left at path.
func WriteFile(path string, snap repo.Snapshot, opt WriteOptions) (WriteResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return WriteResult{}, archiveErr("write", errors.New("missing output path"))
	}
	path = filepath.Clean(path)
	if !opt.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return WriteResult{}, archiveErr("write", fmt.Errorf("file exists (use --overwrite): %s", path))
		}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WriteResult{}, archiveErr("write", err)
	}

	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}

	var buf bytes.Buffer
	entries, err := Build(&buf, snap, now)
	if err != nil {
		return WriteResult{}, err
	}

	tmp, err := os.CreateTemp(dir, ".threadshelf-export-*.zip.tmp")
	if err != nil {
		return WriteResult{}, archiveErr("write", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		cleanup()
		return WriteResult{}, archiveErr("write", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return WriteResult{}, archiveErr("write", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return WriteResult{}, archiveErr("write", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return WriteResult{}, archiveErr("write", err)
	}

	return WriteResult{
		Path:      path,
		Entries:   entries,
		Threads:   len(snap.Threads),
		Bytes:     int64(buf.Len()),
		Orphans:   countOrphans(snap),
		Generated: now.UTC().Format(time.RFC3339),
	}, nil
}

func countOrphans(snap repo.Snapshot) int {
	ids := make(map[string]bool, len(snap.Threads))
	for _, t := range snap.Threads {
		ids[t.ID] = true
	}
	n := 0
	for _, c := range snap.Conversations {
		if !ids[c.ThreadID] {
			n++
		}
	}
	return n
}
