package mailscan

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPSource reads alerts over IMAP. Raw bodies arrive as RFC822 bytes,
// fetched with BODY.PEEK[] so messages are not marked \Seen.
type IMAPSource struct {
	Addr     string
	Username string
	Password string
	Mailbox  string

	client *imapclient.Client
}

func (s *IMAPSource) connect(ctx context.Context) (*imapclient.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	if s.Addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if s.Username == "" || s.Password == "" {
		return nil, errors.New("imap username/password is required")
	}

	c, err := imapclient.DialTLS(s.Addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(s.Username, s.Password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}

	mailbox := s.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap select %q: %w", mailbox, err)
	}

	s.client = c
	return c, nil
}

// Close logs out and drops the connection.
func (s *IMAPSource) Close() {
	if s.client == nil {
		return
	}
	_ = s.client.Logout().Wait()
	_ = s.client.Close()
	s.client = nil
}

func (s *IMAPSource) ListRecent(ctx context.Context, window time.Duration) ([]Summary, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{Since: time.Now().Add(-window)}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return []Summary{}, nil
	}

	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:      true,
		Envelope: true,
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]Summary, 0, len(uids))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		sum := Summary{ID: strconv.FormatUint(uint64(buf.UID), 10)}
		if buf.Envelope != nil {
			sum.Subject = buf.Envelope.Subject
			sum.Date = buf.Envelope.Date
		}
		out = append(out, sum)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

func (s *IMAPSource) RawBody(ctx context.Context, id string) (RawMessage, error) {
	c, err := s.connect(ctx)
	if err != nil {
		return RawMessage{}, err
	}

	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return RawMessage{}, fmt.Errorf("imap message id %q: %w", id, err)
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := c.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	for {
		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return RawMessage{}, fmt.Errorf("imap fetch collect: %w", err)
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			return RawMessage{RFC822: append([]byte(nil), b...)}, nil
		}
	}

	return RawMessage{}, fmt.Errorf("imap uid %d: no body returned", uid)
}
