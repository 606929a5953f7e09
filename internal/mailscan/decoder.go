package mailscan

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// DecodeRaw turns a fetched message into RFC822 bytes, undoing the
// provider's base64url wrapping when present.
func DecodeRaw(raw RawMessage) ([]byte, error) {
	if raw.RFC822 != nil {
		return raw.RFC822, nil
	}
	b, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(raw.Base64URL, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return b, nil
}

// ExtractHTML walks the message's MIME tree depth-first and returns the one
// text/html payload an alert is expected to carry, decoded per its declared
// charset. Zero or multiple HTML parts is ErrMalformedBody; the caller skips
// the message rather than aborting the batch.
func ExtractHTML(rfc822 []byte) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(rfc822))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	var htmls []string
	if strings.HasPrefix(mediaType, "multipart/") {
		if boundary := params["boundary"]; boundary != "" {
			body, err := io.ReadAll(msg.Body)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrDecode, err)
			}
			htmls = collectHTMLParts(body, boundary)
		}
	}
	// Non-multipart alerts never match the provider template; they count as
	// zero HTML parts and fall through to the malformed-body path.

	if len(htmls) != 1 {
		return "", fmt.Errorf("%w: got %d", ErrMalformedBody, len(htmls))
	}
	return htmls[0], nil
}

func collectHTMLParts(body []byte, boundary string) []string {
	var htmls []string
	mr := multipart.NewReader(bytes.NewReader(body), boundary)

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		partCT := part.Header.Get("Content-Type")
		if partCT == "" {
			partCT = "text/plain"
		}
		mediaType, params, _ := mime.ParseMediaType(partCT)
		mediaType = strings.ToLower(mediaType)

		partBody, err := io.ReadAll(part)
		if err != nil {
			continue
		}
		decoded := decodeTransferEncoding(partBody, part.Header.Get("Content-Transfer-Encoding"))

		switch {
		case strings.HasPrefix(mediaType, "multipart/"):
			if nested := params["boundary"]; nested != "" {
				htmls = append(htmls, collectHTMLParts(decoded, nested)...)
			}
		case mediaType == "text/html":
			htmls = append(htmls, decodeCharset(decoded, params["charset"]))
		}
	}

	return htmls
}

func decodeTransferEncoding(b []byte, cte string) []byte {
	switch strings.ToLower(strings.TrimSpace(cte)) {
	case "base64":
		dec := base64.NewDecoder(base64.StdEncoding, bytes.NewReader(b))
		out, err := io.ReadAll(dec)
		if err == nil {
			return out
		}
	case "quoted-printable":
		dec := quotedprintable.NewReader(bytes.NewReader(b))
		out, err := io.ReadAll(dec)
		if err == nil {
			return out
		}
	}
	return b
}

// decodeCharset converts a part's bytes to UTF-8 per the declared charset,
// replacing undecodable bytes. Unknown or missing charsets fall back to
// treating the bytes as UTF-8.
func decodeCharset(b []byte, charset string) string {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return string(b)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(b)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
