package snapshot

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/marmos91/tinyfs/pkg/block"
	xdr "github.com/rasky/go-xdr/xdr2"
)

const (
	// imageMagic is "TNFS" in ASCII
	imageMagic uint32 = 0x544e4653

	// imageVersion is bumped whenever block.Image changes shape
	imageVersion uint32 = 1
)

// ErrCorruptImage is returned by Decode for data that is not an encoded image.
var ErrCorruptImage = errors.New("corrupt snapshot image")

// envelope is the XDR layout of an encoded image.
type envelope struct {
	Magic   uint32
	Version uint32
	Image   block.Image
}

// Encode serializes img in XDR behind a magic number and version.
func Encode(img block.Image) ([]byte, error) {
	var buf bytes.Buffer
	env := envelope{Magic: imageMagic, Version: imageVersion, Image: img}
	if _, err := xdr.Marshal(&buf, &env); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (block.Image, error) {
	var env envelope
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &env); err != nil {
		return block.Image{}, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	if env.Magic != imageMagic {
		return block.Image{}, fmt.Errorf("%w: bad magic %#x", ErrCorruptImage, env.Magic)
	}
	if env.Version != imageVersion {
		return block.Image{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptImage, env.Version)
	}
	return env.Image, nil
}
