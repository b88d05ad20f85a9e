package stream

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/camrelay/internal/app"
	"github.com/dkeye/camrelay/internal/app/orch"
	"github.com/dkeye/camrelay/internal/candidate"
	"github.com/dkeye/camrelay/internal/core"
	"github.com/dkeye/camrelay/internal/domain"
	"github.com/dkeye/camrelay/internal/metrics"
	"github.com/dkeye/camrelay/internal/sdpcodec"
	"github.com/gin-gonic/gin"
)

const deviceOffer = "v=0\r\n" +
	"o=- 1 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 111\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=rtpmap:111 opus/48000/2\r\n"

type viewerConn struct{ id string }

func (v *viewerConn) ID() string                { return v.id }
func (v *viewerConn) TrySend(core.Frame) error { return nil }
func (v *viewerConn) Close()                   {}

func newOrch() *orch.Orchestrator {
	return orch.New(app.NewRegistry(), candidate.NewDedupStore(), metrics.New(), orch.CodecPolicy{
		Rewriter: sdpcodec.Default(),
	})
}

func startServer(t *testing.T, o *orch.Orchestrator) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(o, 1<<16, 8)
	r.POST("/whip", h.HandleOffer)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDeviceStreamReceivesAnswerAndCandidates(t *testing.T) {
	o := newOrch()
	srv := startServer(t, o)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Post(srv.URL+"/whip", "application/sdp", strings.NewReader(deviceOffer))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/sdp" {
		t.Fatalf("content-type=%q", ct)
	}

	waitFor(t, "device attach", func() bool {
		_, ok := o.Registry.Conn(domain.RoleDevice)
		return ok
	})
	o.OnViewerAttach(&viewerConn{id: "view-1"})
	if _, err := o.OnViewerSDP("view-1", "v=0\r\ns=-\r\n"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := o.OnViewerCandidate("view-1", "candidate:7 1 udp 2122260223 10.0.0.9 40000 typ host generation 0"); err != nil {
		t.Fatalf("candidate: %v", err)
	}

	br := bufio.NewReader(resp.Body)
	want := []string{"v=0\r\n", "s=-\r\n", "a=candidate:7 1 udp 2122260223 10.0.0.9 40000 typ host\r\n"}
	for i, w := range want {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if line != w {
			t.Fatalf("line %d=%q, want %q", i, line, w)
		}
	}
}

func TestDeviceDisconnectEndsSession(t *testing.T) {
	o := newOrch()
	srv := startServer(t, o)

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/whip", strings.NewReader(deviceOffer))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	waitFor(t, "device attach", func() bool {
		_, ok := o.Registry.Conn(domain.RoleDevice)
		return ok
	})

	cancel()
	resp.Body.Close()
	waitFor(t, "device detach", func() bool {
		_, ok := o.Registry.Get(domain.RoleDevice)
		return !ok
	})
}

func TestDeviceOfferRejected(t *testing.T) {
	o := newOrch()
	srv := startServer(t, o)

	resp, err := http.Post(srv.URL+"/whip", "application/json", strings.NewReader(`{"sdp":`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", resp.StatusCode)
	}
	if n := o.Metrics.Get(metrics.MalformedInput); n != 1 {
		t.Fatalf("malformed_input=%d, want 1", n)
	}
	if _, ok := o.Registry.Get(domain.RoleDevice); ok {
		t.Fatalf("rejected offer attached a device")
	}
}

func TestReadOfferForms(t *testing.T) {
	jsonOffer := strings.ReplaceAll(deviceOffer, "\r\n", `\r\n`)
	unterminated := strings.TrimSuffix(deviceOffer, "\r\n")
	jsonUnterminated := strings.TrimSuffix(jsonOffer, `\r\n`)
	tests := []struct {
		name, contentType, body string
	}{
		{"raw sdp", "application/sdp", deviceOffer},
		{"text", "text/plain", deviceOffer},
		{"no content type", "", deviceOffer},
		{"no final line break", "application/sdp", unterminated},
		{"flat json", "application/json", `{"type":"offer","sdp":"` + jsonOffer + `"}`},
		{"nested json", "application/json", `{"sdp":{"type":"offer","sdp":"` + jsonOffer + `"}}`},
		{"json without type", "", `{"sdp":"` + jsonOffer + `"}`},
		{"json without final line break", "application/json", `{"type":"offer","sdp":"` + jsonUnterminated + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/whip", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			got, err := ReadOffer(req, 1<<16)
			if err != nil {
				t.Fatalf("ReadOffer: %v", err)
			}
			if got.SDP != deviceOffer {
				t.Fatalf("offer=%q", got.SDP)
			}
			if !got.Summary.HasAudio() || len(got.Summary.Media) != 1 {
				t.Fatalf("summary=%+v", got.Summary)
			}
		})
	}
}

func TestReadOfferKeepsLooseSDP(t *testing.T) {
	tests := []struct {
		name, body, want string
	}{
		{"no timing line", "v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\ns=-\r\nm=audio 9 RTP/SAVP 8", "v=0\r\no=- 1 1 IN IP4 0.0.0.0\r\ns=-\r\nm=audio 9 RTP/SAVP 8\r\n"},
		{"lf only", "v=0\no=- 1 1 IN IP4 0.0.0.0\ns=-\nt=0 0\nm=audio 9 RTP/SAVP 8", "v=0\no=- 1 1 IN IP4 0.0.0.0\ns=-\nt=0 0\nm=audio 9 RTP/SAVP 8\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/whip", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/sdp")
			got, err := ReadOffer(req, 1<<16)
			if err != nil {
				t.Fatalf("ReadOffer: %v", err)
			}
			if got.SDP != tt.want {
				t.Fatalf("offer=%q, want %q", got.SDP, tt.want)
			}
		})
	}
}

func TestDeviceOfferWithoutFinalLineBreakIsStreamed(t *testing.T) {
	o := newOrch()
	srv := startServer(t, o)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Post(srv.URL+"/whip", "application/sdp", strings.NewReader(strings.TrimSuffix(deviceOffer, "\r\n")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusCreated)
	}
	waitFor(t, "device attach", func() bool {
		s, ok := o.Registry.Get(domain.RoleDevice)
		return ok && s.SDP == deviceOffer
	})
}

func TestReadOfferRejects(t *testing.T) {
	tests := []struct {
		name, contentType, body string
	}{
		{"bad json", "application/json", `{"sdp":`},
		{"answer type", "application/json", `{"type":"answer","sdp":"v=0"}`},
		{"missing sdp", "application/json", `{"type":"offer"}`},
		{"not sdp", "text/plain", "hello"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/whip", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if _, err := ReadOffer(req, 1<<16); !errors.Is(err, core.ErrMalformedInput) {
				t.Fatalf("err=%v, want ErrMalformedInput", err)
			}
		})
	}
}

func TestReadOfferTooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/whip", strings.NewReader(deviceOffer))
	_, err := ReadOffer(req, 10)
	if !errors.Is(err, ErrOfferTooLarge) {
		t.Fatalf("err=%v, want ErrOfferTooLarge", err)
	}
}

func TestDeviceStreamTrySend(t *testing.T) {
	ds := NewDeviceStream(1)
	if err := ds.TrySend(core.Frame("a\r\n")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := ds.TrySend(core.Frame("b\r\n")); !errors.Is(err, core.ErrBackpressure) {
		t.Fatalf("err=%v, want ErrBackpressure", err)
	}
	ds.Close()
	ds.Close()
	if err := ds.TrySend(core.Frame("c\r\n")); !errors.Is(err, core.ErrClosed) {
		t.Fatalf("err=%v, want ErrClosed", err)
	}

	var sb strings.Builder
	if !ds.Next(context.Background(), &sb) {
		t.Fatalf("queued frame not drained after close")
	}
	if ds.Next(context.Background(), &sb) {
		t.Fatalf("Next=true on drained stream")
	}
	if sb.String() != "a\r\n" {
		t.Fatalf("written=%q", sb.String())
	}
}
