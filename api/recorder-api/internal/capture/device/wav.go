// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture_device

import (
	"bytes"
	"encoding/binary"
	"time"
)

const (
	AudioBytesPerSample = 2  // LINEAR16 → 2 bytes per sample
	AudioBitsPerSample  = 16 // LINEAR16 → 16 bits per sample
	AudioPCMFormat      = 1  // WAV PCM format tag
	wavHeaderSize       = 44
)

type Format struct {
	SampleRate int
	Channels   int
}

func (f Format) frameSize() int {
	return AudioBytesPerSample * f.Channels
}

func (f Format) bytesPerSecond() int {
	return f.SampleRate * f.Channels * AudioBytesPerSample
}

// align rounds a byte count down to a whole frame.
func (f Format) align(n int) int {
	return (n / f.frameSize()) * f.frameSize()
}

// DurationBytes converts a duration to a frame-aligned byte count.
func (f Format) DurationBytes(d time.Duration) int {
	return f.align(int(d.Seconds() * float64(f.bytesPerSecond())))
}

func (f Format) Duration(n int) time.Duration {
	return time.Duration(float64(n) / float64(f.bytesPerSecond()) * float64(time.Second))
}

func createWAVFile(pcmData []byte, f Format) []byte {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcmData))

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcmData)))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioPCMFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(f.bytesPerSecond()))
	binary.Write(&buf, binary.LittleEndian, uint16(f.frameSize()))
	binary.Write(&buf, binary.LittleEndian, uint16(AudioBitsPerSample))

	// data chunk
	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcmData)))
	buf.Write(pcmData)
	return buf.Bytes()
}
