// Package integrity computes and checks SHA-256 digests of dataset files.
package integrity

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ChunkSize is the read size used while hashing.
const ChunkSize = 64 * 1024

// progressEvery is how many chunks pass between progress callbacks.
const progressEvery = 100

var (
	// ErrMismatch is returned when the digests differ.
	ErrMismatch = errors.New("digest mismatch")
	// ErrHashFile wraps failures reading the reference digest.
	ErrHashFile = errors.New("hash file")
	// ErrDatasetFile wraps failures reading the file being verified.
	ErrDatasetFile = errors.New("dataset file")
)

// Hooks observe a hashing pass. Nil fields are skipped.
type Hooks struct {
	// Start is called once the file size is known.
	Start func(size int64)
	// Progress receives chunks hashed so far and the total, every 100 chunks.
	Progress func(chunks, total int64)
}

// Result describes one verification.
type Result struct {
	Expected string
	Actual   string
	Size     int64
	Elapsed  time.Duration
}

// HashFile streams path through SHA-256 and returns the lowercase hex digest.
func HashFile(path string, hooks Hooks) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}
	size := info.Size()
	total := (size + ChunkSize - 1) / ChunkSize
	if hooks.Start != nil {
		hooks.Start(size)
	}

	h := sha256.New()
	buf := make([]byte, ChunkSize)
	var chunks int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			chunks++
			if hooks.Progress != nil && chunks%progressEvery == 0 {
				hooks.Progress(chunks, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// ReadExpected returns the first whitespace-trimmed line of a digest file.
func ReadExpected(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("no digest in %s", path)
	}
	return line, nil
}

// Match compares two hex digests case-insensitively.
func Match(expected, actual string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(actual))
}

// WriteDigestFile writes digest as the single line of path.
func WriteDigestFile(path, digest string) error {
	return os.WriteFile(path, []byte(digest+"\n"), 0644)
}

// Verify hashes file and compares it to the digest stored in hashFile.
// Input failures wrap ErrHashFile or ErrDatasetFile along with the cause; a
// mismatch returns the filled Result together with ErrMismatch.
func Verify(file, hashFile string, hooks Hooks) (Result, error) {
	var res Result

	expected, err := ReadExpected(hashFile)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrHashFile, err)
	}
	res.Expected = expected

	start := time.Now()
	actual, size, err := HashFile(file, hooks)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrDatasetFile, err)
	}
	res.Actual = actual
	res.Size = size
	res.Elapsed = time.Since(start)

	if !Match(expected, actual) {
		return res, ErrMismatch
	}
	return res, nil
}
