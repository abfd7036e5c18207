package agent

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// PageMeta is the OpenGraph summary of a web page.
type PageMeta struct {
	Title       string
	Description string
	Image       string
	SiteName    string
}

// Enricher reads page metadata for a URL.
type Enricher interface {
	Fetch(ctx context.Context, pageURL string) (*PageMeta, error)
}

// PageEnricher fetches pages over HTTP and reads their OpenGraph tags.
type PageEnricher struct {
	client *resty.Client
}

// maxPageBytes caps how much of a page is parsed.
const maxPageBytes = 1 << 20

// NewPageEnricher returns an enricher that only connects to public unicast
// addresses. The check runs on the resolved address of every dial, redirects
// included.
func NewPageEnricher(timeout time.Duration) *PageEnricher {
	return newPageEnricher(timeout, publicOnly)
}

func newPageEnricher(timeout time.Duration, control func(network, address string, c syscall.RawConn) error) *PageEnricher {
	dialer := &net.Dialer{Timeout: timeout, Control: control}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: timeout,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
	client := resty.New().
		SetTransport(transport).
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("User-Agent", "TechAtlasBot/1.0 (+https://techatlas.ug)")
	return &PageEnricher{client: client}
}

var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("64:ff9b::/96"),
}

// publicOnly is a net.Dialer control hook refusing loopback, private,
// link-local and other non-routable destinations.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() {
		return fmt.Errorf("refusing to fetch from non-public address %s", addr)
	}
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return fmt.Errorf("refusing to fetch from non-public address %s", addr)
		}
	}
	return nil
}

func (e *PageEnricher) Fetch(ctx context.Context, pageURL string) (*PageMeta, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("unsupported url %q", pageURL)
	}

	resp, err := e.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(u.String())
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode())
	}
	if mt, _, err := mime.ParseMediaType(resp.Header().Get("Content-Type")); err != nil || (mt != "text/html" && mt != "application/xhtml+xml") {
		return nil, fmt.Errorf("fetch %s: not an html page", u.Host)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxPageBytes))
	if err != nil {
		return nil, err
	}

	meta := &PageMeta{
		Title:       firstMeta(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`),
		Description: firstMeta(doc, `meta[property="og:description"]`, `meta[name="description"]`),
		Image:       firstMeta(doc, `meta[property="og:image"]`, `meta[name="twitter:image"]`),
		SiteName:    firstMeta(doc, `meta[property="og:site_name"]`),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if meta.Image != "" {
		if ref, err := u.Parse(meta.Image); err == nil {
			meta.Image = ref.String()
		}
	}
	return meta, nil
}

func firstMeta(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
