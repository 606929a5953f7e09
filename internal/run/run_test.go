package run

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"homescout-engine/internal/config"
	"homescout-engine/internal/domain"
	"homescout-engine/internal/extract"
	"homescout-engine/internal/gmaps"
	"homescout-engine/internal/logging"
	"homescout-engine/internal/mailscan"
	"homescout-engine/internal/scout"
	"homescout-engine/internal/store"
)

// fakeSource serves canned messages from memory.
type fakeSource struct {
	summaries []mailscan.Summary
	raw       map[string]mailscan.RawMessage
}

func (f *fakeSource) ListRecent(_ context.Context, _ time.Duration) ([]mailscan.Summary, error) {
	return f.summaries, nil
}

func (f *fakeSource) RawBody(_ context.Context, id string) (mailscan.RawMessage, error) {
	raw, ok := f.raw[id]
	if !ok {
		return mailscan.RawMessage{}, fmt.Errorf("no message %s", id)
	}
	return raw, nil
}

type okRouter struct{}

func (okRouter) TravelTime(_ context.Context, _, _ string, _ domain.TransportMode) (int, float64, error) {
	return 10, 1.0, nil
}

type noPlaces struct{}

func (noPlaces) SearchText(_ context.Context, _ string) ([]gmaps.Place, error) {
	return nil, nil
}

func listingHTML(address string, price int, link string) string {
	return fmt.Sprintf(`<html><body>
<table cellspacing="0" cellpadding="0"><tr><td>
  <a href="%s">photo</a>
  <span>&#163;%d pcm</span>
  <div>2 bedroom flat</div>
  <div>%s</div>
</td></tr></table>
</body></html>`, link, price, address)
}

func alertMessage(htmlBodies ...string) []byte {
	var b strings.Builder
	b.WriteString("From: alerts@example.com\r\n")
	b.WriteString("Subject: southern superpolygon\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=FRONTIER\r\n")
	b.WriteString("\r\n")
	b.WriteString("--FRONTIER\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString("plain fallback\r\n")
	for _, h := range htmlBodies {
		b.WriteString("--FRONTIER\r\n")
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(h + "\r\n")
	}
	b.WriteString("--FRONTIER--\r\n")
	return []byte(b.String())
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.App.RunIntervalHours = 24
	cfg.Mail.SubjectMarker = "southern superpolygon"
	cfg.Mail.WindowDays = 1
	cfg.Constraints = []config.Constraint{
		{Person: "Otto", TargetName: "Work", TargetAddress: "work-a", Mode: "BICYCLE", MaxMinutes: 30},
	}
	return cfg
}

func newTestPipeline(t *testing.T, source mailscan.Source) *Pipeline {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "scout.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	log := logging.Discard()
	return &Pipeline{
		Cfg:       cfg,
		Source:    source,
		Scanner:   extract.NewScanner(log),
		Evaluator: scout.NewEvaluator(okRouter{}, scout.NewShopFinder(okRouter{}, noPlaces{}), cfg.DomainConstraints(), log, 2),
		DB:        db,
		Log:       log,
		Out:       io.Discard,
	}
}

func TestRunOnceWithoutMailerPrintsReport(t *testing.T) {
	source := &fakeSource{
		summaries: []mailscan.Summary{
			{ID: "msg-1", Subject: "southern superpolygon", Date: time.Now()},
		},
		raw: map[string]mailscan.RawMessage{
			"msg-1": {RFC822: alertMessage(listingHTML("4 Quiet Road, London", 1450, "/p/4"))},
		},
	}

	p := newTestPipeline(t, source)
	var out bytes.Buffer
	p.Out = &out

	if err := p.RunOnce(context.Background(), Options{Force: true}); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if !strings.Contains(out.String(), "4 Quiet Road, London") {
		t.Errorf("report was not printed without a mailer:\n%s", out.String())
	}
	addrs, err := p.DB.ReportedAddresses(context.Background())
	if err != nil {
		t.Fatalf("ReportedAddresses failed: %v", err)
	}
	if !addrs["4 Quiet Road, London"] {
		t.Errorf("printed listing not recorded in history: %v", addrs)
	}
}

func TestRunOnceSkipsMalformedMessageAndKeepsTheRest(t *testing.T) {
	source := &fakeSource{raw: map[string]mailscan.RawMessage{}}
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("msg-%d", i)
		source.summaries = append(source.summaries, mailscan.Summary{
			ID:      id,
			Subject: "southern superpolygon",
			Date:    time.Now(),
		})
		addr := fmt.Sprintf("%d Example Road, London", i)
		body := listingHTML(addr, 1500+i, fmt.Sprintf("/p/%d", i))
		if i == 3 {
			// Two HTML parts make the body malformed; the message is skipped.
			source.raw[id] = mailscan.RawMessage{RFC822: alertMessage(body, body)}
			continue
		}
		source.raw[id] = mailscan.RawMessage{RFC822: alertMessage(body)}
	}

	p := newTestPipeline(t, source)
	if err := p.RunOnce(context.Background(), Options{Force: true}); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	addrs, err := p.DB.ReportedAddresses(context.Background())
	if err != nil {
		t.Fatalf("ReportedAddresses failed: %v", err)
	}
	if len(addrs) != 4 {
		t.Fatalf("expected 4 recorded listings, got %d: %v", len(addrs), addrs)
	}
	if addrs["3 Example Road, London"] {
		t.Error("malformed message's listing should not be recorded")
	}
}

func TestRunOnceIgnoresNonMatchingSubjects(t *testing.T) {
	source := &fakeSource{
		summaries: []mailscan.Summary{
			{ID: "msg-1", Subject: "your weekly newsletter", Date: time.Now()},
		},
		raw: map[string]mailscan.RawMessage{},
	}

	p := newTestPipeline(t, source)
	if err := p.RunOnce(context.Background(), Options{Force: true}); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	addrs, err := p.DB.ReportedAddresses(context.Background())
	if err != nil {
		t.Fatalf("ReportedAddresses failed: %v", err)
	}
	if len(addrs) != 0 {
		t.Errorf("expected nothing recorded, got %v", addrs)
	}

	// An empty run does not advance the gate.
	last, err := p.DB.LastRun(context.Background())
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("empty run advanced last-run to %v", last)
	}
}

func TestRunOnceSkipsAddressesReportedEarlier(t *testing.T) {
	body := listingHTML("7 Repeat Road, London", 1400, "/p/7")
	source := &fakeSource{
		summaries: []mailscan.Summary{
			{ID: "msg-1", Subject: "southern superpolygon", Date: time.Now()},
		},
		raw: map[string]mailscan.RawMessage{
			"msg-1": {RFC822: alertMessage(body)},
		},
	}

	p := newTestPipeline(t, source)
	ctx := context.Background()

	if err := p.RunOnce(ctx, Options{Force: true}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first, err := p.DB.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if first.IsZero() {
		t.Fatal("first run did not record last-run time")
	}

	// Same alert again: the address is already in history, nothing new.
	if err := p.RunOnce(ctx, Options{Force: true}); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	addrs, err := p.DB.ReportedAddresses(ctx)
	if err != nil {
		t.Fatalf("ReportedAddresses failed: %v", err)
	}
	if len(addrs) != 1 {
		t.Errorf("expected history unchanged, got %v", addrs)
	}
}

func TestRunOnceHonoursRunIntervalGate(t *testing.T) {
	source := &fakeSource{
		summaries: []mailscan.Summary{
			{ID: "msg-1", Subject: "southern superpolygon", Date: time.Now()},
		},
		raw: map[string]mailscan.RawMessage{
			"msg-1": {RFC822: alertMessage(listingHTML("9 Gate Road, London", 1300, "/p/9"))},
		},
	}

	p := newTestPipeline(t, source)
	ctx := context.Background()

	if err := p.DB.SetLastRun(ctx, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("SetLastRun failed: %v", err)
	}

	if err := p.RunOnce(ctx, Options{}); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	addrs, err := p.DB.ReportedAddresses(ctx)
	if err != nil {
		t.Fatalf("ReportedAddresses failed: %v", err)
	}
	if len(addrs) != 0 {
		t.Errorf("gated run should not process anything, got %v", addrs)
	}

	// Force bypasses the gate.
	if err := p.RunOnce(ctx, Options{Force: true}); err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	addrs, err = p.DB.ReportedAddresses(ctx)
	if err != nil {
		t.Fatalf("ReportedAddresses failed: %v", err)
	}
	if len(addrs) != 1 {
		t.Errorf("forced run should process, got %v", addrs)
	}
}
