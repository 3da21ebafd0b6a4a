package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/yndnr/tabsess-go/internal/core/domain"
	"github.com/yndnr/tabsess-go/pkg/crypto/adaptive"
)

// Envelope constants.
const (
	// Magic identifies a TabSess snapshot envelope.
	Magic = "TABSNAP1"

	// FormatVersion is the current envelope format version.
	FormatVersion = 1

	// DefaultCompressThreshold is the body size in bytes above which
	// the payload is zstd-compressed.
	DefaultCompressThreshold = 4096

	// MaxSnapshotSize caps the decoded envelope size to guard against
	// corrupted length fields.
	MaxSnapshotSize = 256 << 20 // 256 MiB

	checksumSize = sha256.Size
	lenFieldSize = 4
)

// header is the JSON metadata block at the front of every envelope.
type header struct {
	Version    int  `json:"version"`
	RowCount   int  `json:"row_count"`
	ColCount   int  `json:"col_count"`
	Compressed bool `json:"compressed"`
	Encrypted  bool `json:"encrypted"`
}

// columnPayload is the wire form of one column. Values are rendered
// through their canonical string encoding; nil marks a null cell.
type columnPayload struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Values []*string `json:"values"`
}

type framePayload struct {
	Columns []columnPayload `json:"columns"`
}

// Config configures a Codec.
type Config struct {
	// CompressThreshold is the minimum body size for compression.
	// Zero uses DefaultCompressThreshold; negative disables compression.
	CompressThreshold int

	// Cipher, when set, seals the body with authenticated encryption.
	// Encrypted envelopes are not byte-deterministic.
	Cipher adaptive.Cipher
}

// Codec encodes dataset frames into snapshot envelopes and back.
// A Codec is safe for concurrent use.
type Codec struct {
	cfg Config
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec creates a codec. The zstd encoder is pinned to a single
// goroutine so identical frames produce identical bytes.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.CompressThreshold == 0 {
		cfg.CompressThreshold = DefaultCompressThreshold
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot: init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("snapshot: init zstd decoder: %w", err)
	}

	return &Codec{cfg: cfg, enc: enc, dec: dec}, nil
}

// Encode serializes a frame into an envelope and returns the bytes
// together with the snapshot metadata recorded in session history.
func (c *Codec) Encode(frame *domain.Frame) ([]byte, *domain.SnapshotMeta, error) {
	if frame == nil {
		return nil, nil, domain.ErrInvalidArgument.WithDetails("frame is nil")
	}
	if err := frame.Validate(); err != nil {
		return nil, nil, err
	}

	payload := framePayload{Columns: make([]columnPayload, len(frame.Columns))}
	for i, col := range frame.Columns {
		values := make([]*string, len(col.Values))
		for j, v := range col.Values {
			if v.Null {
				continue
			}
			s := v.EncodeString()
			values[j] = &s
		}
		payload.Columns[i] = columnPayload{
			Name:   col.Name,
			Type:   col.Type.String(),
			Values: values,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: marshal frame: %w", err)
	}

	hdr := header{
		Version:  FormatVersion,
		RowCount: frame.NumRows(),
		ColCount: frame.NumCols(),
	}

	if c.cfg.CompressThreshold > 0 && len(body) >= c.cfg.CompressThreshold {
		body = c.enc.EncodeAll(body, make([]byte, 0, len(body)/2))
		hdr.Compressed = true
	}

	if c.cfg.Cipher != nil {
		// The header is the AEAD's additional data, so the flag must
		// be flipped before sealing.
		hdr.Encrypted = true
		aad, err := json.Marshal(hdr)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: marshal header: %w", err)
		}
		body, err = c.cfg.Cipher.Encrypt(body, aad)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: encrypt body: %w", err)
		}
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(Magic)+2*lenFieldSize+len(hdrJSON)+len(body)+checksumSize))
	buf.WriteString(Magic)
	var lenField [lenFieldSize]byte
	binary.BigEndian.PutUint32(lenField[:], uint32(len(hdrJSON)))
	buf.Write(lenField[:])
	buf.Write(hdrJSON)
	binary.BigEndian.PutUint32(lenField[:], uint32(len(body)))
	buf.Write(lenField[:])
	buf.Write(body)

	sum := sha256.Sum256(buf.Bytes())
	buf.Write(sum[:])

	encoded := buf.Bytes()
	meta := &domain.SnapshotMeta{
		RowCount: hdr.RowCount,
		ColCount: hdr.ColCount,
		ByteSize: len(encoded),
		Checksum: hex.EncodeToString(sum[:]),
	}
	return encoded, meta, nil
}

// Decode parses an envelope back into a frame. Any structural damage,
// checksum mismatch, or decryption failure is reported as
// domain.ErrSnapshotCorrupted.
func (c *Codec) Decode(encoded []byte) (*domain.Frame, error) {
	minSize := len(Magic) + 2*lenFieldSize + checksumSize
	if len(encoded) < minSize {
		return nil, corrupted("envelope truncated")
	}
	if len(encoded) > MaxSnapshotSize {
		return nil, corrupted("envelope exceeds size limit")
	}
	if string(encoded[:len(Magic)]) != Magic {
		return nil, corrupted("bad magic bytes")
	}

	// Checksum covers everything before the trailer.
	trailer := encoded[len(encoded)-checksumSize:]
	sum := sha256.Sum256(encoded[:len(encoded)-checksumSize])
	if !bytes.Equal(sum[:], trailer) {
		return nil, corrupted("checksum mismatch")
	}

	rest := encoded[len(Magic) : len(encoded)-checksumSize]
	hdrLen := binary.BigEndian.Uint32(rest[:lenFieldSize])
	rest = rest[lenFieldSize:]
	// Widened to uint64 so an absurd header length cannot wrap the sum.
	if uint64(hdrLen)+lenFieldSize > uint64(len(rest)) {
		return nil, corrupted("header length out of range")
	}
	hdrJSON := rest[:hdrLen]
	rest = rest[hdrLen:]

	var hdr header
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, corrupted("header is not valid JSON")
	}
	if hdr.Version != FormatVersion {
		return nil, corrupted(fmt.Sprintf("unsupported format version %d", hdr.Version))
	}

	bodyLen := binary.BigEndian.Uint32(rest[:lenFieldSize])
	body := rest[lenFieldSize:]
	if uint32(len(body)) != bodyLen {
		return nil, corrupted("body length mismatch")
	}

	if hdr.Encrypted {
		if c.cfg.Cipher == nil {
			return nil, corrupted("envelope is encrypted but no cipher is configured")
		}
		plain, err := c.cfg.Cipher.Decrypt(body, hdrJSON)
		if err != nil {
			return nil, corrupted("decryption failed")
		}
		body = plain
	}

	if hdr.Compressed {
		plain, err := c.dec.DecodeAll(body, nil)
		if err != nil {
			return nil, corrupted("decompression failed")
		}
		body = plain
	}

	var payload framePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, corrupted("body is not valid JSON")
	}

	frame := &domain.Frame{Columns: make([]domain.Column, len(payload.Columns))}
	for i, col := range payload.Columns {
		typ, ok := domain.ParseColumnType(col.Type)
		if !ok {
			return nil, corrupted(fmt.Sprintf("column %q has unknown type %q", col.Name, col.Type))
		}
		values := make([]domain.Value, len(col.Values))
		for j, raw := range col.Values {
			if raw == nil {
				values[j] = domain.NullValue(typ)
				continue
			}
			v, err := domain.DecodeValue(typ, *raw)
			if err != nil {
				return nil, corrupted(fmt.Sprintf("column %q row %d: value %q does not decode as %s", col.Name, j, *raw, typ))
			}
			values[j] = v
		}
		frame.Columns[i] = domain.Column{Name: col.Name, Type: typ, Values: values}
	}

	if err := frame.Validate(); err != nil {
		return nil, corrupted("decoded frame fails validation")
	}
	if frame.NumRows() != hdr.RowCount || frame.NumCols() != hdr.ColCount {
		return nil, corrupted("header dimensions do not match payload")
	}
	return frame, nil
}

func corrupted(detail string) error {
	return domain.ErrSnapshotCorrupted.WithDetails(detail)
}
