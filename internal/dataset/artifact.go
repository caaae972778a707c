// Package dataset persists the feature records, the aggregate stats report
// and the dataset description.
package dataset

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/chessgraph/features/internal/features"
)

// Artifact file structure:
//   Header (32 bytes, little endian):
//     - Magic (4): "CFDS"
//     - Version (2): 1
//     - Flags (2): reserved
//     - Moves (4): full moves kept per game
//     - RecordCount (4)
//     - Checksum (4): CRC32 of the uncompressed body
//     - Created (8): unix seconds
//     - Reserved (4)
//   Body (zstd): one JSON record per line, in acceptance order

const (
	ArtifactMagic      = "CFDS"
	ArtifactVersion    = 1
	ArtifactHeaderSize = 32
)

// ErrBadArtifact reports a malformed or truncated artifact.
var ErrBadArtifact = errors.New("bad artifact")

// Header is the artifact file header.
type Header struct {
	Version     uint16
	Moves       uint32
	RecordCount uint32
	Checksum    uint32
	Created     time.Time
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, ArtifactHeaderSize)
	copy(buf[0:4], ArtifactMagic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Moves)
	binary.LittleEndian.PutUint32(buf[12:16], h.RecordCount)
	binary.LittleEndian.PutUint32(buf[16:20], h.Checksum)
	binary.LittleEndian.PutUint64(buf[20:28], uint64(h.Created.Unix()))
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < ArtifactHeaderSize {
		return Header{}, fmt.Errorf("%w: header too short", ErrBadArtifact)
	}
	if string(buf[0:4]) != ArtifactMagic {
		return Header{}, fmt.Errorf("%w: invalid magic %q", ErrBadArtifact, buf[0:4])
	}
	h := Header{
		Version:     binary.LittleEndian.Uint16(buf[4:6]),
		Moves:       binary.LittleEndian.Uint32(buf[8:12]),
		RecordCount: binary.LittleEndian.Uint32(buf[12:16]),
		Checksum:    binary.LittleEndian.Uint32(buf[16:20]),
		Created:     time.Unix(int64(binary.LittleEndian.Uint64(buf[20:28])), 0),
	}
	if h.Version != ArtifactVersion {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrBadArtifact, h.Version)
	}
	return h, nil
}

// WriteArtifact atomically writes recs to path and returns the header.
func WriteArtifact(path string, moves int, recs []*features.Record) (Header, error) {
	h := Header{
		Version:     ArtifactVersion,
		Moves:       uint32(moves),
		RecordCount: uint32(len(recs)),
		Created:     time.Now(),
	}

	err := writeAtomic(path, func(f *os.File) error {
		// Placeholder header, rewritten once the checksum is known
		if _, err := f.Write(make([]byte, ArtifactHeaderSize)); err != nil {
			return err
		}

		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		crc := crc32.NewIEEE()
		bw := bufio.NewWriter(io.MultiWriter(enc, crc))
		je := json.NewEncoder(bw)
		for i, rec := range recs {
			if err := je.Encode(rec); err != nil {
				enc.Close()
				return fmt.Errorf("encode record %d: %w", i, err)
			}
		}
		if err := bw.Flush(); err != nil {
			enc.Close()
			return err
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("close zstd encoder: %w", err)
		}

		h.Checksum = crc.Sum32()
		_, err = f.WriteAt(encodeHeader(h), 0)
		return err
	})
	if err != nil {
		return Header{}, fmt.Errorf("write artifact %s: %w", path, err)
	}
	return h, nil
}

// ArtifactReader streams records back in write order.
type ArtifactReader struct {
	f      *os.File
	dec    *zstd.Decoder
	jd     *json.Decoder
	crc    hash.Hash32
	header Header
	read   uint32
}

// OpenArtifact opens path and validates its header.
func OpenArtifact(path string) (*ArtifactReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, ArtifactHeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: read header: %v", ErrBadArtifact, err)
	}
	h, err := decodeHeader(buf)
	if err != nil {
		f.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	crc := crc32.NewIEEE()
	return &ArtifactReader{
		f:      f,
		dec:    dec,
		jd:     json.NewDecoder(io.TeeReader(dec, crc)),
		crc:    crc,
		header: h,
	}, nil
}

// Header returns the validated file header.
func (r *ArtifactReader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF after the last one. Reaching the
// end verifies the record count and checksum.
func (r *ArtifactReader) Next() (*features.Record, error) {
	if r.read == r.header.RecordCount {
		if r.jd.More() {
			return nil, fmt.Errorf("%w: more records than the header count %d", ErrBadArtifact, r.header.RecordCount)
		}
		// Drain so the checksum covers the whole body
		if _, err := io.Copy(io.Discard, r.jd.Buffered()); err != nil {
			return nil, err
		}
		if _, err := io.Copy(r.crc, r.dec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
		}
		if r.crc.Sum32() != r.header.Checksum {
			return nil, fmt.Errorf("%w: checksum mismatch", ErrBadArtifact)
		}
		return nil, io.EOF
	}

	var rec features.Record
	if err := r.jd.Decode(&rec); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %d of %d records present", ErrBadArtifact, r.read, r.header.RecordCount)
		}
		return nil, fmt.Errorf("%w: record %d: %v", ErrBadArtifact, r.read, err)
	}
	r.read++
	return &rec, nil
}

// Close releases the decoder and file.
func (r *ArtifactReader) Close() error {
	r.dec.Close()
	return r.f.Close()
}

// ReadArtifact loads every record of an artifact.
func ReadArtifact(path string) (Header, []*features.Record, error) {
	r, err := OpenArtifact(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer r.Close()

	recs := make([]*features.Record, 0, r.header.RecordCount)
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return r.header, recs, nil
		}
		if err != nil {
			return Header{}, nil, err
		}
		recs = append(recs, rec)
	}
}
