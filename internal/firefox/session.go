package firefox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/lotas/fensterordnung/internal/types"
	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}

	for i := 0; i < len(mozLz4Magic); i++ {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[8:12])

	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}

	return dst[:n], nil
}

// Raw JSON types for Firefox session file parsing.
type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries      []rawEntry `json:"entries"`
	Index        int        `json:"index"`
	LastAccessed int64      `json:"lastAccessed"`
	Pinned       bool       `json:"pinned"`
	Hidden       bool       `json:"hidden"`
}

type rawWindow struct {
	Tabs     []rawTab `json:"tabs"`
	Selected int      `json:"selected"` // 1-based index of the active tab
}

type rawSession struct {
	Windows []rawWindow `json:"windows"`
}

// ParseSession parses raw session JSON into a Snapshot. Session files carry
// no browser ids, so windows are numbered from 1 by position and tabs get
// sequential ids in session order.
func ParseSession(data []byte) (*types.Snapshot, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	snap := &types.Snapshot{
		Source:  "session",
		TakenAt: time.Now(),
	}

	nextID := 1
	for winIdx, window := range raw.Windows {
		windowID := winIdx + 1
		snap.Windows = append(snap.Windows, windowID)

		pos := 0
		for tabIdx, rt := range window.Tabs {
			if len(rt.Entries) == 0 || rt.Hidden {
				continue
			}

			// index is 1-based; current page is entries[index-1].
			entryIdx := rt.Index - 1
			if entryIdx < 0 || entryIdx >= len(rt.Entries) {
				entryIdx = len(rt.Entries) - 1
			}
			entry := rt.Entries[entryIdx]

			tab := types.Tab{
				ID:       nextID,
				URL:      entry.URL,
				Title:    entry.Title,
				WindowID: windowID,
				Pinned:   rt.Pinned,
				Active:   tabIdx+1 == window.Selected,
				Index:    pos,
			}
			if rt.LastAccessed > 0 {
				tab.LastAccessed = time.UnixMilli(rt.LastAccessed)
			}
			snap.Tabs = append(snap.Tabs, tab)
			nextID++
			pos++
		}
	}

	return snap, nil
}

// sessionFiles are tried in order: the running session first, then the
// last closed one.
var sessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}

// sessionPath returns the first session file present in profileDir.
func sessionPath(profileDir string) (string, error) {
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	for _, name := range sessionFiles {
		p := filepath.Join(backupDir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("no session file found in %s: %w", backupDir, fs.ErrNotExist)
}

// ReadSessionFile reads and parses the session of the profile in profileDir.
func ReadSessionFile(profileDir string) (*types.Snapshot, error) {
	path, err := sessionPath(profileDir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", filepath.Base(path), err)
	}

	return ParseSession(decompressed)
}

// ReadProfile reads the session of p and records p on the snapshot.
func ReadProfile(p types.Profile) (*types.Snapshot, error) {
	snap, err := ReadSessionFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	snap.Profile = p
	return snap, nil
}
