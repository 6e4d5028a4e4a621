package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/loganpowell/microvector/codec"
	"github.com/loganpowell/microvector/document"
	"github.com/loganpowell/microvector/metric"
)

// Snapshot format
//
//	header (plain):
//	  [0:4]  magic "MVEC"
//	  [4:6]  format version (uint16 LE)
//	  [6]    compression scheme
//	  [7]    reserved
//	  [8:10] codec name length (uint16 LE)
//	  codec name bytes
//	body (compressed per scheme):
//	  dim (uint32), metric (uint8), normalized flag (uint8),
//	  key path length (uint16) + bytes, pair count (uint32),
//	  then per pair: dim raw float32 values (LE) followed by a
//	  length-prefixed codec-marshaled document.
//
// The header is self-describing: decoding selects the compression scheme and
// document codec recorded at encode time, so defaults can change without
// breaking existing files.
var snapshotMagic = [4]byte{'M', 'V', 'E', 'C'}

const snapshotFormatVersion uint16 = 1

const (
	// maxSnapshotPairs bounds the declared pair count before any allocation.
	maxSnapshotPairs = 100_000_000
	// maxSnapshotDim bounds the declared vector dimensionality before the
	// vector read buffer is allocated.
	maxSnapshotDim = 1 << 20
	// maxDocumentBytes bounds a single serialized document.
	maxDocumentBytes = 64 << 20
)

// Compression identifies the scheme applied to a snapshot's body.
type Compression uint8

const (
	CompressionZstd Compression = iota
	CompressionLZ4
	CompressionNone
)

func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionNone:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

func (c Compression) valid() bool { return c <= CompressionNone }

// EncodeOptions configures snapshot encoding.
type EncodeOptions struct {
	// Codec marshals document payloads. Defaults to codec.Default.
	Codec codec.Codec
	// Compression selects the body compression scheme. Defaults to zstd.
	Compression Compression
}

// Encode serializes the store's full state to w.
func Encode(w io.Writer, s *Store, optFns ...func(o *EncodeOptions)) error {
	opts := EncodeOptions{
		Codec:       codec.Default,
		Compression: CompressionZstd,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if !opts.Compression.valid() {
		return fmt.Errorf("invalid compression scheme: %d", opts.Compression)
	}
	codecName := opts.Codec.Name()
	if _, ok := codec.ByName(codecName); !ok {
		return fmt.Errorf("codec %q is not registered; snapshots must be decodable by name", codecName)
	}

	var hdr [10]byte
	copy(hdr[0:4], snapshotMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], snapshotFormatVersion)
	hdr[6] = byte(opts.Compression)
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(len(codecName)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, codecName); err != nil {
		return err
	}

	body, closeBody, err := compressingWriter(w, opts.Compression)
	if err != nil {
		return err
	}
	if err := writeBody(body, s, opts.Codec); err != nil {
		_ = closeBody()
		return err
	}
	return closeBody()
}

// EncodeBytes serializes the store's full state to a byte blob.
func EncodeBytes(s *Store, optFns ...func(o *EncodeOptions)) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s, optFns...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func compressingWriter(w io.Writer, c Compression) (io.Writer, func() error, error) {
	switch c {
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return zw, zw.Close, nil
	case CompressionLZ4:
		lw := lz4.NewWriter(w)
		return lw, lw.Close, nil
	default:
		return w, func() error { return nil }, nil
	}
}

func writeBody(w io.Writer, s *Store, c codec.Codec) error {
	var fixed [4]byte
	binary.LittleEndian.PutUint32(fixed[:], uint32(s.dim))
	if _, err := w.Write(fixed[:]); err != nil {
		return err
	}
	var flags [2]byte
	flags[0] = byte(s.metric)
	if s.normalized {
		flags[1] = 1
	}
	if _, err := w.Write(flags[:]); err != nil {
		return err
	}
	if err := writeString16(w, s.keyPath); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(fixed[:], uint32(len(s.docs)))
	if _, err := w.Write(fixed[:]); err != nil {
		return err
	}

	vecBuf := make([]byte, 4*s.dim)
	for i, vec := range s.vectors {
		for j, f := range vec {
			binary.LittleEndian.PutUint32(vecBuf[4*j:], math.Float32bits(f))
		}
		if _, err := w.Write(vecBuf); err != nil {
			return err
		}
		docBytes, err := c.Marshal(s.docs[i])
		if err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}
		binary.LittleEndian.PutUint32(fixed[:], uint32(len(docBytes)))
		if _, err := w.Write(fixed[:]); err != nil {
			return err
		}
		if _, err := w.Write(docBytes); err != nil {
			return err
		}
	}
	return nil
}

func writeString16(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("string too long for snapshot: %d bytes", len(s))
	}
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], uint16(len(s)))
	if _, err := w.Write(n[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// Decode reconstructs a store from a snapshot stream.
//
// It fails closed: any structural inconsistency (unknown version or codec,
// pair count disagreement, truncated vectors, undecodable documents) returns
// an error satisfying errors.Is(err, ErrCorruptData) and no store.
func Decode(r io.Reader) (*Store, error) {
	var hdr [10]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %w", ErrCorruptData, err)
	}
	if !bytes.Equal(hdr[0:4], snapshotMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptData)
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != snapshotFormatVersion {
		return nil, &ErrUnsupportedVersion{Version: v}
	}
	compression := Compression(hdr[6])
	if !compression.valid() {
		return nil, fmt.Errorf("%w: unknown compression scheme %d", ErrCorruptData, hdr[6])
	}
	nameLen := int(binary.LittleEndian.Uint16(hdr[8:10]))
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return nil, fmt.Errorf("%w: short codec name: %w", ErrCorruptData, err)
	}
	c, ok := codec.ByName(string(nameBytes))
	if !ok {
		return nil, fmt.Errorf("%w: unknown document codec %q", ErrCorruptData, nameBytes)
	}

	body, closeBody, err := decompressingReader(r, compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	defer closeBody()

	s, err := readBody(body, c)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeBytes reconstructs a store from a snapshot blob.
func DecodeBytes(data []byte) (*Store, error) {
	return Decode(bytes.NewReader(data))
}

func decompressingReader(r io.Reader, c Compression) (io.Reader, func(), error) {
	switch c {
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return r, func() {}, nil
	}
}

func readBody(r io.Reader, c codec.Codec) (*Store, error) {
	var fixed [4]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("%w: short body: %w", ErrCorruptData, err)
	}
	dim := int(binary.LittleEndian.Uint32(fixed[:]))
	if dim > maxSnapshotDim {
		return nil, fmt.Errorf("%w: dimension %d exceeds limit", ErrCorruptData, dim)
	}

	var flags [2]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return nil, fmt.Errorf("%w: short body: %w", ErrCorruptData, err)
	}
	m := metric.Metric(flags[0])
	if !m.Valid() {
		return nil, fmt.Errorf("%w: unknown metric %d", ErrCorruptData, flags[0])
	}
	normalized := flags[1] == 1
	if m.NormalizesVectors() && !normalized {
		return nil, fmt.Errorf("%w: cosine snapshot without normalized vectors", ErrCorruptData)
	}

	keyPath, err := readString16(r)
	if err != nil {
		return nil, fmt.Errorf("%w: key path: %w", ErrCorruptData, err)
	}

	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("%w: short body: %w", ErrCorruptData, err)
	}
	count := int(binary.LittleEndian.Uint32(fixed[:]))
	if count > maxSnapshotPairs {
		return nil, fmt.Errorf("%w: pair count %d exceeds limit", ErrCorruptData, count)
	}
	if count > 0 && dim == 0 {
		return nil, fmt.Errorf("%w: %d pairs declared with dimension 0", ErrCorruptData, count)
	}

	s := &Store{
		dim:        dim,
		metric:     m,
		keyPath:    keyPath,
		normalized: normalized,
	}
	if count == 0 {
		return s, nil
	}

	s.vectors = make([][]float32, 0, count)
	s.docs = make([]document.Document, 0, count)
	vecBuf := make([]byte, 4*dim)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, vecBuf); err != nil {
			return nil, fmt.Errorf("%w: vector %d truncated: %w", ErrCorruptData, i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(vecBuf[4*j:]))
		}

		if _, err := io.ReadFull(r, fixed[:]); err != nil {
			return nil, fmt.Errorf("%w: document %d length truncated: %w", ErrCorruptData, i, err)
		}
		docLen := int(binary.LittleEndian.Uint32(fixed[:]))
		if docLen > maxDocumentBytes {
			return nil, fmt.Errorf("%w: document %d size %d exceeds limit", ErrCorruptData, i, docLen)
		}
		docBytes := make([]byte, docLen)
		if _, err := io.ReadFull(r, docBytes); err != nil {
			return nil, fmt.Errorf("%w: document %d truncated: %w", ErrCorruptData, i, err)
		}
		var doc document.Document
		if err := c.Unmarshal(docBytes, &doc); err != nil {
			return nil, fmt.Errorf("%w: document %d undecodable: %w", ErrCorruptData, i, err)
		}

		s.vectors = append(s.vectors, vec)
		s.docs = append(s.docs, doc)
	}
	return s, nil
}

func readString16(r io.Reader) (string, error) {
	var n [2]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	b := make([]byte, binary.LittleEndian.Uint16(n[:]))
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
