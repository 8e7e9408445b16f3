package sonos

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
)

const defaultAVTransportPath = "/MediaRenderer/AVTransport/Control"

type deviceDescription struct {
	URLBase string            `xml:"URLBase"`
	Device  descriptionDevice `xml:"device"`
}

type descriptionDevice struct {
	DeviceType   string              `xml:"deviceType"`
	FriendlyName string              `xml:"friendlyName"`
	RoomName     string              `xml:"roomName"`
	UDN          string              `xml:"UDN"`
	Services     []deviceService     `xml:"serviceList>service"`
	Devices      []descriptionDevice `xml:"deviceList>device"`
}

type deviceService struct {
	ServiceType string `xml:"serviceType"`
	ControlURL  string `xml:"controlURL"`
}

func (d deviceDescription) BaseURL(location string) string {
	if strings.TrimSpace(d.URLBase) != "" {
		return strings.TrimRight(d.URLBase, "/")
	}
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

// Name is the room name the Sonos apps show, falling back to the UPnP
// friendly name for non-Sonos renderers.
func (d deviceDescription) Name() string {
	if name := strings.TrimSpace(d.Device.RoomName); name != "" {
		return name
	}
	return strings.TrimSpace(d.Device.FriendlyName)
}

func (d deviceDescription) UUID() string {
	return strings.TrimPrefix(d.Device.UDN, "uuid:")
}

// AVTransport searches the device tree for the AVTransport control endpoint.
// Zone players nest it under their MediaRenderer sub-device.
func (d deviceDescription) AVTransport(base string) string {
	if ref := findAVTransport(d.Device); ref != "" {
		return resolveURL(base, ref)
	}
	return resolveURL(base, defaultAVTransportPath)
}

func findAVTransport(device descriptionDevice) string {
	for _, svc := range device.Services {
		if strings.Contains(strings.ToLower(svc.ServiceType), "avtransport") && svc.ControlURL != "" {
			return svc.ControlURL
		}
	}
	for _, child := range device.Devices {
		if ref := findAVTransport(child); ref != "" {
			return ref
		}
	}
	return ""
}

func resolveURL(baseURL string, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		base.Path = path.Join(base.Path, ref)
		return base.String()
	}
	return base.ResolveReference(rel).String()
}

func fetchDescription(ctx context.Context, httpClient *http.Client, location string) (*deviceDescription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("describe speaker error: %s", resp.Status)
	}
	var desc deviceDescription
	if err := xml.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, err
	}
	return &desc, nil
}
