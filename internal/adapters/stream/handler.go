package stream

import (
	"io"
	"net/http"

	"github.com/dkeye/camrelay/internal/app/orch"
	"github.com/dkeye/camrelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const invalidOfferBody = "Invalid JSON or unsupported data format"

type Handler struct {
	Orch          *orch.Orchestrator
	MaxOfferBytes int64
	SendBuffer    int
}

func NewHandler(o *orch.Orchestrator, maxOfferBytes int64, sendBuffer int) *Handler {
	return &Handler{
		Orch:          o,
		MaxOfferBytes: maxOfferBytes,
		SendBuffer:    sendBuffer,
	}
}

// HandleOffer accepts the device offer and keeps the response open as the
// channel for the viewer's answer and candidates.
func (h *Handler) HandleOffer(c *gin.Context) {
	offer, err := ReadOffer(c.Request, h.MaxOfferBytes)
	if err != nil {
		h.Orch.OnMalformed(domain.RoleDevice, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidOfferBody})
		return
	}

	ds := NewDeviceStream(h.SendBuffer)
	log.Info().Str("module", "stream").Str("conn", ds.ID()).Str("remote", c.ClientIP()).
		Strs("media", offer.Summary.Media).Int("candidates", offer.Summary.Candidates).
		Bool("audio", offer.Summary.HasAudio()).Msg("device stream opened")

	c.Header("Content-Type", "application/sdp")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusCreated)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	h.Orch.OnDeviceOffer(ds, offer.SDP)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		return ds.Next(ctx, w)
	})

	h.Orch.OnDeviceClosed(ds.ID())
	ds.Close()
	log.Info().Str("module", "stream").Str("conn", ds.ID()).Msg("device stream closed")
}
