package sonos

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	ssdpAddress      = "239.255.255.250:1900"
	zonePlayerTarget = "urn:schemas-upnp-org:device:ZonePlayer:1"
)

// Discoverer finds zone players with an SSDP M-SEARCH and reads each
// responder's device description.
type Discoverer struct {
	timeout time.Duration
	http    *http.Client
	logger  *log.Entry

	// overridden in tests
	search func(ctx context.Context) ([]string, error)
}

func NewDiscoverer(timeout time.Duration, httpClient *http.Client, logger *log.Entry) *Discoverer {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	d := &Discoverer{
		timeout: timeout,
		http:    httpClient,
		logger:  logger.WithField("module", "sonos-discovery"),
	}
	d.search = d.ssdpSearch
	return d
}

// Discover returns every speaker that answered, in answer order. Speakers
// whose description cannot be read are skipped.
func (d *Discoverer) Discover(ctx context.Context) ([]*Speaker, error) {
	locations, err := d.search(ctx)
	if err != nil {
		return nil, err
	}

	speakers := make([]*Speaker, 0, len(locations))
	seen := map[string]bool{}
	for _, location := range locations {
		desc, err := fetchDescription(ctx, d.http, location)
		if err != nil {
			d.logger.WithError(err).WithField("location", location).Debug("describe speaker failed")
			continue
		}
		uuid := desc.UUID()
		if seen[uuid] {
			continue
		}
		seen[uuid] = true

		speaker := NewSpeaker(desc.Name(), uuid, desc.AVTransport(desc.BaseURL(location)), d.http, d.logger)
		speaker.location = location
		d.logger.WithFields(log.Fields{"name": speaker.Name(), "location": location}).Debug("speaker discovered")
		speakers = append(speakers, speaker)
	}
	return speakers, nil
}

// Devices adapts Discover to the Session's DiscoverFunc.
func (d *Discoverer) Devices(ctx context.Context) ([]Device, error) {
	speakers, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	devices := make([]Device, 0, len(speakers))
	for _, speaker := range speakers {
		devices = append(devices, speaker)
	}
	return devices, nil
}

func (d *Discoverer) ssdpSearch(ctx context.Context) ([]string, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	target, err := net.ResolveUDPAddr("udp4", ssdpAddress)
	if err != nil {
		return nil, err
	}
	if _, err := conn.WriteTo(buildSearchRequest(zonePlayerTarget, d.timeout), target); err != nil {
		return nil, err
	}

	return collectResponses(ctx, conn, time.Now().Add(d.timeout))
}

// collectResponses reads M-SEARCH replies until deadline or the ctx
// deadline, whichever is first, and returns the locations heard so far.
// Cancelling ctx stops the read at once and reports ctx.Err().
func collectResponses(ctx context.Context, conn net.PacketConn, deadline time.Time) ([]string, error) {
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var locations []string
	seen := map[string]bool{}
	buf := make([]byte, 4096)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break
			}
			return locations, err
		}
		location, ok := parseSearchResponse(buf[:n])
		if !ok || seen[location] {
			continue
		}
		seen[location] = true
		locations = append(locations, location)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return locations, ctx.Err()
	}
	return locations, nil
}

func buildSearchRequest(searchTarget string, wait time.Duration) []byte {
	mx := int(wait / time.Second)
	if mx < 1 {
		mx = 1
	}
	var buf bytes.Buffer
	buf.WriteString("M-SEARCH * HTTP/1.1\r\n")
	buf.WriteString("HOST: " + ssdpAddress + "\r\n")
	buf.WriteString("MAN: \"ssdp:discover\"\r\n")
	buf.WriteString("MX: " + strconv.Itoa(min(mx, 5)) + "\r\n")
	buf.WriteString("ST: " + searchTarget + "\r\n\r\n")
	return buf.Bytes()
}

// parseSearchResponse pulls the description URL out of an M-SEARCH reply.
// Replies from anything other than a zone player are ignored.
func parseSearchResponse(payload []byte) (string, bool) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(payload)), nil)
	if err != nil {
		return "", false
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	if st := resp.Header.Get("ST"); st != "" && !strings.Contains(st, "ZonePlayer") {
		return "", false
	}
	location := strings.TrimSpace(resp.Header.Get("Location"))
	return location, location != ""
}
