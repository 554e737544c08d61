package transcriber

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/leonardotrapani/voxbridge/internal/recording"
)

const (
	wavPCM   = 1
	wavFloat = 3
)

// EncodeWAV wraps raw little-endian PCM in a WAV container.
func EncodeWAV(raw []byte, enc recording.Encoding) ([]byte, error) {
	var bitsPerSample, format int
	switch enc.Format {
	case "s16", "s16le":
		bitsPerSample, format = 16, wavPCM
	case "s24", "s24le":
		bitsPerSample, format = 24, wavPCM
	case "s32", "s32le":
		bitsPerSample, format = 32, wavPCM
	case "f32", "f32le":
		bitsPerSample, format = 32, wavFloat
	case "u8":
		bitsPerSample, format = 8, wavPCM
	default:
		return nil, fmt.Errorf("unsupported sample format %q", enc.Format)
	}
	if enc.SampleRate <= 0 || enc.Channels <= 0 {
		return nil, fmt.Errorf("invalid encoding %s", enc)
	}

	blockAlign := enc.Channels * bitsPerSample / 8
	byteRate := enc.SampleRate * blockAlign
	dataSize := len(raw) - len(raw)%blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(format))
	binary.Write(&buf, binary.LittleEndian, uint16(enc.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(enc.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	// trailing partial frames are dropped
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(raw[:dataSize])

	return buf.Bytes(), nil
}
