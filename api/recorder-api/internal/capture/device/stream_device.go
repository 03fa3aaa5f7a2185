// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_capture_device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

const readSize = 4096

var ErrSourceClosed = errors.New("capture source closed")

// window is a byte range on the stream timeline. end stays -1 until the
// next window opens.
type window struct {
	start int
	end   int
}

// StreamDevice reads LINEAR16 PCM from a continuous source and hands out one
// WAV per window. Offsets are absolute byte positions on the stream, so
// back to back windows share a boundary and never overlap.
type StreamDevice struct {
	logger commons.Logger
	format Format
	source io.Reader

	mu      sync.Mutex
	buf     []byte
	base    int // stream offset of buf[0]
	total   int // bytes read so far
	windows map[internal_type.ChunkHandle]*window
	next    internal_type.ChunkHandle
	err     error
}

func NewStreamDevice(logger commons.Logger, source io.Reader, format Format) *StreamDevice {
	d := &StreamDevice{
		logger:  logger,
		format:  format,
		source:  source,
		windows: make(map[internal_type.ChunkHandle]*window),
	}
	go d.readLoop()
	return d
}

func (d *StreamDevice) readLoop() {
	chunk := make([]byte, readSize)
	for {
		n, err := d.source.Read(chunk)
		if n > 0 {
			d.push(chunk[:n])
		}
		if err != nil {
			d.mu.Lock()
			if errors.Is(err, io.EOF) {
				d.err = ErrSourceClosed
			} else {
				d.err = fmt.Errorf("capture source: %w", err)
			}
			d.mu.Unlock()
			d.logger.Warnf("capture-device: source ended after %s: %v", d.format.Duration(d.total), err)
			return
		}
	}
}

func (d *StreamDevice) push(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf = append(d.buf, data...)
	d.total += len(data)
	if len(d.windows) == 0 {
		d.trimTo(d.format.align(d.total))
	}
}

// trimTo drops buffered bytes before the stream offset off.
func (d *StreamDevice) trimTo(off int) {
	if off <= d.base {
		return
	}
	drop := off - d.base
	if drop > len(d.buf) {
		drop = len(d.buf)
	}
	d.buf = append(d.buf[:0], d.buf[drop:]...)
	d.base += drop
}

func (d *StreamDevice) StartWindow(ctx context.Context, duration time.Duration) (internal_type.ChunkHandle, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return 0, d.err
	}
	boundary := d.format.align(d.total)
	if boundary < d.base {
		boundary = d.base
	}
	for _, w := range d.windows {
		if w.end < 0 {
			w.end = boundary
		}
	}
	h := d.next
	d.next++
	d.windows[h] = &window{start: boundary, end: -1}
	return h, nil
}

func (d *StreamDevice) StopWindow(h internal_type.ChunkHandle) (internal_type.Chunk, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[h]
	if !ok {
		return internal_type.Chunk{}, fmt.Errorf("unknown window %d", h)
	}
	delete(d.windows, h)

	end := w.end
	if end < 0 {
		end = d.format.align(d.total)
	}
	pcm := make([]byte, end-w.start)
	copy(pcm, d.buf[w.start-d.base:end-d.base])

	oldest := d.format.align(d.total)
	for _, open := range d.windows {
		if open.start < oldest {
			oldest = open.start
		}
	}
	d.trimTo(oldest)

	d.logger.Debugf("capture-device: window %d closed with %d bytes (%s)", h, len(pcm), d.format.Duration(len(pcm)))
	return internal_type.Chunk{Data: createWAVFile(pcm, d.format), Mime: "audio/wav"}, nil
}

// Close releases the source when it is closable.
func (d *StreamDevice) Close() error {
	if closer, ok := d.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
