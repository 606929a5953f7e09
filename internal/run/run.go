// Package run wires the batch pipeline: fetch alert emails, extract
// listings, scout them and send the report.
package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"homescout-engine/internal/config"
	"homescout-engine/internal/domain"
	"homescout-engine/internal/extract"
	"homescout-engine/internal/logging"
	"homescout-engine/internal/mailscan"
	"homescout-engine/internal/notify"
	"homescout-engine/internal/report"
	"homescout-engine/internal/scout"
	"homescout-engine/internal/store"
)

type Options struct {
	// PrintOnly writes the report to stdout and leaves run state untouched.
	PrintOnly bool
	// Force bypasses the last-run gate.
	Force bool
}

type Pipeline struct {
	Cfg       config.Config
	Source    mailscan.Source
	Scanner   *extract.Scanner
	Evaluator *scout.Evaluator
	DB        *store.DB
	Mailer    *notify.Mailer
	Log       *logging.Logger

	// Out receives printed reports. Nil means stdout.
	Out io.Writer
}

func (p *Pipeline) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stdout
}

// RunOnce executes one batch. Per-message and per-listing anomalies are
// logged and skipped; only precondition failures (mail source down, storage
// broken) abort the run.
func (p *Pipeline) RunOnce(ctx context.Context, opts Options) error {
	if !opts.Force && !opts.PrintOnly {
		lastRun, err := p.DB.LastRun(ctx)
		if err != nil {
			return fmt.Errorf("read last run: %w", err)
		}
		if gap := time.Since(lastRun); gap < p.Cfg.RunInterval() {
			p.Log.Infof("[run] already ran %s ago, skipping", gap.Round(time.Minute))
			return nil
		}
	}

	listings, matchedMessages, err := p.extractListings(ctx)
	if err != nil {
		return err
	}
	if matchedMessages > 0 && len(listings) == 0 {
		p.Log.Warnf("[run] %d matching messages produced zero listings; the alert template may have drifted", matchedMessages)
	}

	listings, err = p.dropAlreadyReported(ctx, listings)
	if err != nil {
		return err
	}

	scouted := p.Evaluator.ScoutAll(ctx, listings)

	if opts.PrintOnly {
		fmt.Fprintln(p.out(), report.Render(scouted))
		return nil
	}

	// An empty day does not advance the gate: the next run looks again.
	now := time.Now()
	if len(scouted) == 0 {
		p.Log.Infof("[run] no new houses found")
		return nil
	}

	subject := fmt.Sprintf("Potential new houses %s", now.Format("2006/01/02"))
	if p.Mailer != nil {
		p.Mailer.Send(p.Cfg.Notify.Recipients, subject, report.Render(scouted))
	} else {
		// The history below marks these addresses reported, so the report
		// still has to reach the user somewhere.
		p.Log.Warnf("[run] notifications disabled, printing report")
		fmt.Fprintln(p.out(), report.Render(scouted))
	}
	for _, loc := range scouted {
		if _, err := p.DB.RecordScouted(ctx, loc, now); err != nil {
			p.Log.Errorf("[run] recording %s: %v", loc.Listing.Address, err)
		}
	}

	if err := p.DB.SetLastRun(ctx, now); err != nil {
		return fmt.Errorf("set last run: %w", err)
	}
	return nil
}

// extractListings pulls the recent message window, keeps the alert messages
// and scans each one's HTML body. Returns the deduplicated listings and how
// many messages matched the subject marker.
func (p *Pipeline) extractListings(ctx context.Context) ([]domain.Listing, int, error) {
	window := time.Duration(p.Cfg.Mail.WindowDays) * 24 * time.Hour
	summaries, err := p.Source.ListRecent(ctx, window)
	if err != nil {
		return nil, 0, fmt.Errorf("list recent messages: %w", err)
	}

	matched := mailscan.FilterBySubject(summaries, p.Cfg.Mail.SubjectMarker)
	p.Log.Infof("[run] %d of %d recent messages match %q", len(matched), len(summaries), p.Cfg.Mail.SubjectMarker)

	listingStore := extract.NewListingStore(p.Log)
	for _, msg := range matched {
		raw, err := p.Source.RawBody(ctx, msg.ID)
		if err != nil {
			p.Log.Warnf("[run] fetching message %s: %v", msg.ID, err)
			continue
		}
		rfc822, err := mailscan.DecodeRaw(raw)
		if err != nil {
			p.Log.Warnf("[run] decoding message %s: %v", msg.ID, err)
			continue
		}
		htmlBody, err := mailscan.ExtractHTML(rfc822)
		if err != nil {
			p.Log.Warnf("[run] message %s: %v", msg.ID, err)
			continue
		}
		listings, err := p.Scanner.Scan(htmlBody)
		if err != nil {
			p.Log.Warnf("[run] scanning message %s: %v", msg.ID, err)
			continue
		}
		listingStore.AddAll(listings)
	}

	return listingStore.Listings(), len(matched), nil
}

func (p *Pipeline) dropAlreadyReported(ctx context.Context, listings []domain.Listing) ([]domain.Listing, error) {
	reported, err := p.DB.ReportedAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	out := listings[:0]
	for _, l := range listings {
		if reported[l.Address] {
			p.Log.Infof("[run] skipping %s: reported in a previous run", l.Address)
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
