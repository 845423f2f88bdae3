package httpapi

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/duet/internal/audio"
	"github.com/ent0n29/duet/internal/speech"
)

// handleReplay re-synthesizes one transcript entry. Each call spends provider
// quota, so it is rate limited across all clients.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	ordinal, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "ordinal")))
	if err != nil || ordinal < 0 {
		respondError(w, http.StatusBadRequest, "invalid_ordinal", "ordinal must be a non-negative integer")
		return
	}
	if !s.replay.Allow() {
		w.Header().Set("Retry-After", "2")
		respondError(w, http.StatusTooManyRequests, "rate_limited", "too many replay requests")
		return
	}

	turn, art, err := s.conv.Replay(r.Context(), ordinal)
	if err != nil {
		s.respondConversationError(w, err)
		return
	}
	body, mime, err := playable(art)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "audio_encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Turn-Speaker", turn.SpeakerID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// playable wraps raw PCM in a WAV container so browsers can play it.
func playable(art speech.Artifact) ([]byte, string, error) {
	if sr, ok := audio.PCMSampleRate(art.Format); ok {
		wav, err := audio.EncodeWAVPCM16LE(art.Audio, sr)
		if err != nil {
			return nil, "", err
		}
		return wav, "audio/wav", nil
	}
	return art.Audio, audio.MimeForFormat(art.Format), nil
}

func playableBase64(art *speech.Artifact) (string, string, string) {
	if art == nil || len(art.Audio) == 0 {
		return "", "", ""
	}
	body, mime, err := playable(*art)
	if err != nil {
		return "", "", ""
	}
	format := art.Format
	if mime == "audio/wav" {
		format = "wav"
	}
	return base64.StdEncoding.EncodeToString(body), format, mime
}
