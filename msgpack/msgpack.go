package msgpack

import (
	"github.com/keybase/go-codec/codec"
)

func newHandle() *codec.MsgpackHandle {
	var mh codec.MsgpackHandle
	mh.WriteExt = true
	mh.Canonical = true
	return &mh
}

// EncodeCanonical encodes src with deterministic map ordering, so equal
// values always serialize to equal bytes. Required anywhere an encoding is
// hashed.
func EncodeCanonical(src interface{}) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, newHandle()).Encode(src); err != nil {
		return nil, err
	}
	return out, nil
}

func Decode(dst interface{}, src []byte) error {
	return codec.NewDecoderBytes(src, newHandle()).Decode(dst)
}
