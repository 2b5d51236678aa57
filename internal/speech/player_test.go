package speech

import (
	"encoding/binary"
	"errors"
	"testing"
)

// makeWAV builds a minimal RIFF/WAVE clip around pcm.
func makeWAV(pcm []byte, format, bits uint16) []byte {
	buf := make([]byte, 0, 44+len(pcm))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(pcm)))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, format)
	buf = binary.LittleEndian.AppendUint16(buf, ChannelCount)
	buf = binary.LittleEndian.AppendUint32(buf, SampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, SampleRate*2)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, bits)

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(pcm)))
	return append(buf, pcm...)
}

func TestExtractPCM(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}

	got, err := extractPCM(makeWAV(pcm, 1, 16))
	if err != nil {
		t.Fatalf("extractPCM: %v", err)
	}
	if string(got) != string(pcm) {
		t.Errorf("got %v, want %v", got, pcm)
	}
}

func TestExtractPCMErrors(t *testing.T) {
	notWAV := makeWAV([]byte{0, 0}, 1, 16)
	copy(notWAV[8:12], "AVI ")

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"short", []byte("RIFF"), errShortWAV},
		{"not wave", notWAV, errNotWAV},
		{"float", makeWAV([]byte{0, 0}, 3, 32), errFormatWAV},
		{"8-bit", makeWAV([]byte{0, 0}, 1, 8), errFormatWAV},
	}
	for _, tt := range tests {
		if _, err := extractPCM(tt.in); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestPeakS16(t *testing.T) {
	raw := binary.LittleEndian.AppendUint16(nil, 100)
	neg := int16(-3000)
	raw = binary.LittleEndian.AppendUint16(raw, uint16(neg))
	raw = binary.LittleEndian.AppendUint16(raw, 2000)

	if got := peakS16(raw); got != 3000 {
		t.Errorf("peakS16 = %d, want 3000", got)
	}
	if got := peakS16(nil); got != 0 {
		t.Errorf("peakS16(nil) = %d, want 0", got)
	}
}
