package audio

import "testing"

func TestResampleMono16SameRateNoOp(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	out := ResampleMono16(pcm, 16000, 16000)
	if len(out) != len(pcm) {
		t.Fatalf("expected unchanged length, got %d", len(out))
	}
}

func TestResampleMono16Downsample(t *testing.T) {
	// 8 samples at 32kHz should become 4 samples at 16kHz.
	pcm := make([]byte, 16)
	for i := 0; i < 8; i++ {
		v := int16(i * 1000)
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}
	out := ResampleMono16(pcm, 32000, 16000)
	if len(out) != 8 {
		t.Fatalf("expected 4 output samples (8 bytes), got %d bytes", len(out))
	}
}

func TestStereoToMonoAverages(t *testing.T) {
	// One stereo frame: L=100, R=200 -> mono=150.
	pcm := []byte{100, 0, 200, 0}
	out := StereoToMono(pcm)
	if len(out) != 2 {
		t.Fatalf("expected 2 bytes mono output, got %d", len(out))
	}
	got := int16(out[0]) | int16(out[1])<<8
	if got != 150 {
		t.Fatalf("expected averaged sample 150, got %d", got)
	}
}
