package format

import (
	"fmt"
	"os"
)

// Fingerprint is the cheap staleness check of a log file: its modification
// time and byte size.
type Fingerprint struct {
	MTime uint64
	Size  uint64
}

// FingerprintOf derives a fingerprint from file info.
func FingerprintOf(fi os.FileInfo) Fingerprint {
	mt := fi.ModTime()
	return Fingerprint{
		MTime: uint64(mt.Unix())<<32 + uint64(mt.Nanosecond()),
		Size:  uint64(fi.Size()),
	}
}

// StatFingerprint stats path and returns its fingerprint.
func StatFingerprint(path string) (Fingerprint, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return FingerprintOf(fi), nil
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("mtime=%#x size=%d", f.MTime, f.Size)
}
