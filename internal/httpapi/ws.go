package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/duet/internal/conversation"
	"github.com/ent0n29/duet/internal/persona"
	"github.com/ent0n29/duet/internal/protocol"
)

// handleWS streams run events to the client and accepts start/stop controls.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.RunEvent("ws_connected")
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := s.conv.Subscribe(64)
	defer unsubscribe()

	outbound := make(chan any, 64)
	s.enqueue(outbound, s.runState(""))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				if !s.write(conn, msg) {
					cancel()
					return
				}
			case ev, ok := <-events:
				if !ok {
					return
				}
				msg := s.messageFor(ev)
				if msg == nil {
					continue
				}
				if !s.write(conn, msg) {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for ctx.Err() == nil {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			s.enqueue(outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Source: "gateway",
				Detail: err.Error(),
			})
			continue
		}
		control, ok := parsed.(protocol.ClientControl)
		if !ok {
			continue
		}
		s.metrics.WSMessage("inbound", string(control.Type))
		s.handleControl(ctx, outbound, control)
	}

	cancel()
	<-writerDone
	s.metrics.RunEvent("ws_disconnected")
}

func (s *Server) handleControl(ctx context.Context, outbound chan<- any, control protocol.ClientControl) {
	switch control.Action {
	case protocol.ActionStart:
		if _, err := s.conv.Start(ctx); err != nil {
			s.enqueue(outbound, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   controlErrorCode(err),
				Source: "conversation",
				Detail: err.Error(),
			})
		}
	case protocol.ActionStop:
		s.conv.Stop()
		s.enqueue(outbound, s.runState(""))
	}
}

// enqueue keeps websocket writes on the writer goroutine and drops when the
// queue is saturated.
func (s *Server) enqueue(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
		s.logger.Debug("websocket outbound queue full")
	}
}

func (s *Server) write(conn *websocket.Conn, msg any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
		return false
	}
	if t, ok := messageTypeOf(msg); ok {
		s.metrics.WSMessage("outbound", string(t))
	}
	return true
}

func (s *Server) messageFor(ev conversation.Event) any {
	switch ev.Kind {
	case conversation.EventTurn:
		audioB64, format, mime := playableBase64(ev.Audio)
		return protocol.TurnAppended{
			Type:        protocol.TypeTurnAppended,
			RunID:       ev.RunID,
			Ordinal:     ev.Turn.Ordinal,
			SpeakerID:   ev.Turn.SpeakerID,
			SpeakerName: ev.Turn.SpeakerName,
			Text:        ev.Turn.Text,
			Kind:        string(ev.Turn.Kind),
			AudioFormat: format,
			AudioMime:   mime,
			AudioBase64: audioB64,
			WaitMS:      ev.Wait.Milliseconds(),
		}
	case conversation.EventState:
		msg := s.runState(ev.RunID)
		msg.State = ev.State.String()
		return msg
	case conversation.EventError:
		return protocol.ErrorEvent{
			Type:   protocol.TypeErrorEvent,
			RunID:  ev.RunID,
			Code:   "generation_failed",
			Source: "textgen",
			Detail: ev.Err,
		}
	default:
		return nil
	}
}

func (s *Server) runState(runID string) protocol.RunState {
	st := s.conv.Status()
	if runID == "" {
		runID = st.RunID
	}
	return protocol.RunState{
		Type:   protocol.TypeRunState,
		RunID:  runID,
		State:  st.State.String(),
		Active: st.Active,
		Turns:  st.Turns,
	}
}

func controlErrorCode(err error) string {
	switch {
	case errors.Is(err, conversation.ErrRunActive):
		return "run_active"
	case errors.Is(err, conversation.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, persona.ErrInvalidPersona):
		return "invalid_persona"
	default:
		return "start_failed"
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientControl:
		return m.Type, true
	case protocol.TurnAppended:
		return m.Type, true
	case protocol.RunState:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
