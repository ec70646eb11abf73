package archive

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/hupe1980/swarmdb/codec"
)

// ManifestVersion is the manifest layout written by this package.
const ManifestVersion = 1

// ErrManifest is returned for manifests that cannot be decoded.
var ErrManifest = errors.New("archive: invalid manifest")

// Manifest describes one archived run.
type Manifest struct {
	Version     int         `json:"version"`
	RunID       string      `json:"run_id"`
	Name        string      `json:"name"`
	Compression Compression `json:"compression"`
	// Size and CRC32C describe the uncompressed log.
	Size       int64  `json:"size"`
	CRC32C     uint32 `json:"crc32c"`
	StoredSize int64  `json:"stored_size"`
	Records    int    `json:"records"`
	Systems    uint64 `json:"systems"`
	// FirstTime and LastTime are omitted for logs without simulation events.
	FirstTime *float64  `json:"first_time,omitempty"`
	LastTime  *float64  `json:"last_time,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ratio returns the stored size relative to the original size.
func (m *Manifest) Ratio() float64 {
	if m.Size == 0 {
		return 1
	}
	return float64(m.StoredSize) / float64(m.Size)
}

func runDir(prefix, runID string) string { return path.Join(prefix, runID) }

func manifestName(prefix, runID string) string {
	return path.Join(runDir(prefix, runID), "manifest.json")
}

func dataName(prefix, runID string, c Compression) string {
	return path.Join(runDir(prefix, runID), "data"+c.ext())
}

// encodeManifest prefixes the encoded manifest with the codec name on its
// own line.
func encodeManifest(c codec.Codec, m *Manifest) ([]byte, error) {
	body, err := c.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	out := make([]byte, 0, len(c.Name())+1+len(body))
	out = append(out, c.Name()...)
	out = append(out, '\n')
	return append(out, body...), nil
}

func decodeManifest(data []byte) (*Manifest, error) {
	name, body, ok := bytes.Cut(data, []byte{'\n'})
	if !ok {
		return nil, fmt.Errorf("%w: missing codec line", ErrManifest)
	}
	c, ok := codec.ByName(string(name))
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrManifest, name)
	}
	var m Manifest
	if err := c.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("%w: version %d", ErrManifest, m.Version)
	}
	return &m, nil
}
