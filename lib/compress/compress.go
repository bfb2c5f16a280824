// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress is the reversible transform applied to object bytes
// before they are cached or uploaded.
//
// Objects are self-describing: [Decompress] recognizes the frame magic
// of every supported codec, so a cache or bucket may hold objects
// written with different codecs and levels. The level only trades speed
// for ratio and never affects the decompressed bytes.
package compress

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bureau-foundation/vlfs/lib/fault"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names a compression algorithm.
type Codec string

const (
	// Zstd is the default codec. Levels 1-22 follow the reference zstd
	// scale; the encoder maps them onto its own speed tiers.
	Zstd Codec = "zstd"

	// LZ4 trades ratio for decode speed. Levels 0-9, where 0 is the
	// fast mode.
	LZ4 Codec = "lz4"
)

// DefaultLevel is the zstd level used when none is configured.
const DefaultLevel = 3

// Options selects the codec and level for Compress.
type Options struct {
	Codec Codec
	Level int
}

// Default returns zstd at DefaultLevel.
func Default() Options {
	return Options{Codec: Zstd, Level: DefaultLevel}
}

// Validate reports whether the level is in range for the codec.
func (o Options) Validate() error {
	switch o.codec() {
	case Zstd:
		if o.Level < 1 || o.Level > 22 {
			return fmt.Errorf("zstd compression level %d out of range 1-22", o.Level)
		}
	case LZ4:
		if o.Level < 0 || o.Level > 9 {
			return fmt.Errorf("lz4 compression level %d out of range 0-9", o.Level)
		}
	default:
		return fmt.Errorf("unknown compression codec %q (want %q or %q)", o.Codec, Zstd, LZ4)
	}
	return nil
}

func (o Options) codec() Codec {
	if o.Codec == "" {
		return Zstd
	}
	return o.Codec
}

// Frame magic numbers as they appear on the wire (little-endian).
var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// ErrUnknownFormat is returned, wrapped in a CorruptObject fault, when
// bytes start with no recognized frame magic.
var ErrUnknownFormat = errors.New("unrecognized compression frame")

// Compress encodes data with the selected codec. Empty input produces a
// complete frame so every stored object is non-empty and decodable.
func Compress(data []byte, options Options) ([]byte, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	switch options.codec() {
	case LZ4:
		return compressLZ4(data, options.Level)
	default:
		encoder, err := zstdEncoderFor(options.Level)
		if err != nil {
			return nil, err
		}
		return encoder.EncodeAll(data, make([]byte, 0, len(data)/2+64)), nil
	}
}

// Decompress decodes a frame produced by Compress with any codec.
// Corrupt or unrecognized input returns an error of kind
// fault.CorruptObject.
func Decompress(compressed []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(compressed, zstdMagic):
		decoded, err := zstdDecoder.DecodeAll(compressed, nil)
		if err != nil {
			return nil, corrupt(fmt.Errorf("zstd: %w", err))
		}
		return decoded, nil
	case bytes.HasPrefix(compressed, lz4Magic):
		decoded, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
		if err != nil {
			return nil, corrupt(fmt.Errorf("lz4: %w", err))
		}
		return decoded, nil
	default:
		return nil, corrupt(ErrUnknownFormat)
	}
}

// NewReader returns a streaming decoder for r. The codec is detected
// from the first four bytes. Read errors from the decoder are reported
// as fault.CorruptObject.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	buffered := bufio.NewReaderSize(r, 64*1024)
	magic, err := buffered.Peek(4)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, corrupt(ErrUnknownFormat)
		}
		return nil, err
	}

	switch {
	case bytes.Equal(magic, zstdMagic):
		decoder, err := zstd.NewReader(buffered, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, corrupt(fmt.Errorf("zstd: %w", err))
		}
		return &corruptReader{reader: decoder, closer: decoder.Close, codec: Zstd}, nil
	case bytes.Equal(magic, lz4Magic):
		return &corruptReader{reader: lz4.NewReader(buffered), closer: func() {}, codec: LZ4}, nil
	default:
		return nil, corrupt(ErrUnknownFormat)
	}
}

// corruptReader converts decoder failures into CorruptObject faults.
type corruptReader struct {
	reader io.Reader
	closer func()
	codec  Codec
}

func (c *corruptReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	if err != nil && err != io.EOF {
		return n, corrupt(fmt.Errorf("%s: %w", c.codec, err))
	}
	return n, err
}

func (c *corruptReader) Close() error {
	c.closer()
	return nil
}

func corrupt(err error) error {
	return &fault.Error{Kind: fault.CorruptObject, Err: err}
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use of
// EncodeAll/DecodeAll, so one instance per level is shared.
var (
	zstdDecoder *zstd.Decoder

	zstdEncodersMu sync.Mutex
	zstdEncoders   = map[zstd.EncoderLevel]*zstd.Encoder{}
)

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

func zstdEncoderFor(level int) (*zstd.Encoder, error) {
	encoderLevel := zstd.EncoderLevelFromZstd(level)

	zstdEncodersMu.Lock()
	defer zstdEncodersMu.Unlock()
	if encoder, ok := zstdEncoders[encoderLevel]; ok {
		return encoder, nil
	}
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	zstdEncoders[encoderLevel] = encoder
	return encoder, nil
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func compressLZ4(data []byte, level int) ([]byte, error) {
	var buffer bytes.Buffer
	writer := lz4.NewWriter(&buffer)
	if err := writer.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
		return nil, fmt.Errorf("lz4 options: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	return buffer.Bytes(), nil
}
