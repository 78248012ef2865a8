package handler

import (
	"net/http"
	"time"

	"lead_portal_backend/internal/leads/domain"
	"lead_portal_backend/internal/leads/live"
	"lead_portal_backend/internal/leads/management"
	"lead_portal_backend/internal/leads/transport"
	"lead_portal_backend/platform/httpkit"
	"lead_portal_backend/platform/logger"
	"lead_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	eventLeads     = "leads"
	eventStats     = "stats"
	eventError     = "error"
	eventConnected = "connected"

	defaultKeepAlive = 25 * time.Second
)

// LiveFeed is the subscription side of the live aggregator.
type LiveFeed interface {
	Subscribe(onUpdate func([]live.EnhancedLead), onError func(error), opts live.Options) func()
	SubscribeToStats(onUpdate func(domain.Stats)) func()
}

// StreamHandler pushes live lead snapshots over Server-Sent Events.
type StreamHandler struct {
	feed      LiveFeed
	val       *validator.Validator
	log       *logger.Logger
	keepAlive time.Duration
}

func NewStreamHandler(feed LiveFeed, val *validator.Validator, log *logger.Logger) *StreamHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &StreamHandler{feed: feed, val: val, log: log, keepAlive: defaultKeepAlive}
}

// Leads streams the filtered lead collection. Every "leads" event carries
// the whole collection; slow clients only ever see the newest one.
func (h *StreamHandler) Leads(c *gin.Context) {
	var req transport.StreamLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	opts := live.Options{OrderByScore: req.OrderBy == "score", Limit: req.Limit}
	if req.Status != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
		opts.Status = &status
	}

	out := make(chan sseEvent, 1)
	unsubscribe := h.feed.Subscribe(
		func(leads []live.EnhancedLead) {
			offer(out, sseEvent{name: eventLeads, data: toEnhancedLeadResponses(leads)})
		},
		func(error) {
			offer(out, sseEvent{name: eventError, data: gin.H{"error": "lead feed temporarily unavailable"}})
		},
		opts,
	)
	defer unsubscribe()

	h.serve(c, eventLeads, out)
}

// Stats streams the dashboard counters.
func (h *StreamHandler) Stats(c *gin.Context) {
	out := make(chan sseEvent, 1)
	unsubscribe := h.feed.SubscribeToStats(func(s domain.Stats) {
		offer(out, sseEvent{name: eventStats, data: s})
	})
	defer unsubscribe()

	h.serve(c, eventStats, out)
}

type sseEvent struct {
	name string
	data any
}

// serve writes events until the client goes away. The content type is
// set by gin's SSE renderer.
func (h *StreamHandler) serve(c *gin.Context, kind string, events <-chan sseEvent) {
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.SSEvent(eventConnected, gin.H{"at": time.Now().UTC()})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	h.log.Debug("live stream opened", "kind", kind, "ip", c.ClientIP())
	defer h.log.Debug("live stream closed", "kind", kind, "ip", c.ClientIP())

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case <-ticker.C:
			if _, err := c.Writer.WriteString(": keep-alive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case e := <-events:
			c.SSEvent(e.name, e.data)
			c.Writer.Flush()
		}
	}
}

// offer replaces any unread value so the channel always holds the newest.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func toEnhancedLeadResponses(leads []live.EnhancedLead) []transport.EnhancedLeadResponse {
	out := make([]transport.EnhancedLeadResponse, len(leads))
	for i, l := range leads {
		out[i] = toEnhancedLeadResponse(l)
	}
	return out
}

func toEnhancedLeadResponse(l live.EnhancedLead) transport.EnhancedLeadResponse {
	resp := transport.EnhancedLeadResponse{LeadResponse: management.ToLeadResponse(l.Lead)}
	if l.User != nil {
		milestones := l.User.Milestones
		if milestones == nil {
			milestones = []string{}
		}
		resp.User = &transport.PortalUserSummary{
			ID:           l.User.ID,
			Email:        l.User.Email,
			DisplayName:  l.User.DisplayName,
			Role:         l.User.Role,
			JourneyStage: l.User.JourneyStage,
			Milestones:   milestones,
		}
	}
	if l.Session != nil {
		resp.Questionnaire = &transport.QuestionnaireSummary{
			Status:         string(l.Session.Status),
			Answered:       len(l.Session.Responses),
			ScoreBreakdown: l.Session.ScoreBreakdown,
			StartedAt:      l.Session.StartedAt,
			CompletedAt:    l.Session.CompletedAt,
		}
	}
	return resp
}
