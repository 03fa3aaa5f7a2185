// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	internal_type "github.com/rapidaai/segscribe/api/recorder-api/internal/type"
	"github.com/rapidaai/segscribe/pkg/commons"
)

const (
	typeSegmentSaved = "segment_saved"
	defaultReconnect = 2 * time.Second
)

var errUnknownMessage = errors.New("unknown message type")

// inboundMessage is the loose shape of everything the processor pushes.
// Fields arrive as numbers or strings depending on the sender.
type inboundMessage struct {
	Type       string `json:"type"`
	Idx        *int   `json:"idx"`
	ID         string `json:"id"`
	SegmentID  string `json:"segment_id"`
	Sid        string `json:"sid"`
	ServerID   string `json:"server_id"`
	URL        string `json:"url"`
	Mime       string `json:"mime"`
	Size       int64  `json:"size"`
	Provider   string `json:"provider"`
	Transcript string `json:"transcript"`
	Text       string `json:"text"`
}

func (m inboundMessage) ref() internal_type.Ref {
	r := internal_type.RefByID(m.ID, remoteID(m.SegmentID, m.Sid, m.ServerID))
	if m.Idx != nil {
		r.Index = *m.Idx
	}
	return r
}

func decodeMessage(raw []byte) (inboundMessage, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return inboundMessage{}, fmt.Errorf("invalid message: %w", err)
	}
	var msg inboundMessage
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           &msg,
	})
	if err != nil {
		return inboundMessage{}, err
	}
	if err := decoder.Decode(generic); err != nil {
		return inboundMessage{}, fmt.Errorf("invalid message fields: %w", err)
	}
	return msg, nil
}

// Listener subscribes to the processor's websocket and routes saved and
// transcript messages to a handler. It reconnects until its context ends.
type Listener struct {
	logger    commons.Logger
	url       string
	handler   internal_type.MessageHandler
	dialer    *websocket.Dialer
	reconnect time.Duration
}

type ListenerOption func(*Listener)

func WithReconnectDelay(d time.Duration) ListenerOption {
	return func(l *Listener) { l.reconnect = d }
}

func NewListener(logger commons.Logger, url string, handler internal_type.MessageHandler, opts ...ListenerOption) *Listener {
	l := &Listener{
		logger:    logger,
		url:       url,
		handler:   handler,
		dialer:    websocket.DefaultDialer,
		reconnect: defaultReconnect,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.listen(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warnf("ws-listener: %v, reconnecting in %s", err, l.reconnect)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.reconnect):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}
	defer conn.Close()
	l.logger.Infof("ws-listener: connected to %s", l.url)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if err := l.dispatch(ctx, raw); err != nil {
			l.logger.Debugf("ws-listener: dropping message: %v", err)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, raw []byte) error {
	msg, err := decodeMessage(raw)
	if err != nil {
		return err
	}
	if msg.Type == typeSegmentSaved {
		return l.handler.HandleSegmentSaved(ctx, internal_type.SavedMessage{
			Ref:   msg.ref(),
			Media: internal_type.MediaRef{URL: msg.URL, Mime: msg.Mime, Size: msg.Size},
		})
	}
	provider, ok := internal_type.ProviderFromMessageType(msg.Type)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownMessage, msg.Type)
	}
	if msg.Provider != "" {
		provider = internal_type.ProviderKey(msg.Provider)
	}
	text := msg.Transcript
	if text == "" {
		text = msg.Text
	}
	return l.handler.HandleTranscript(ctx, internal_type.TranscriptMessage{
		Ref:      msg.ref(),
		Provider: provider,
		Text:     text,
	})
}
