package sonos

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

const avTransportService = "urn:schemas-upnp-org:service:AVTransport:1"

type soapParam struct {
	name  string
	value string
}

type soapClient struct {
	http   *http.Client
	logger *log.Entry
}

type soapFault struct {
	Code        string `xml:"Body>Fault>detail>UPnPError>errorCode"`
	Description string `xml:"Body>Fault>detail>UPnPError>errorDescription"`
}

// call posts one UPnP action. Parameters are written in the given order;
// some speakers reject reordered arguments.
func (c *soapClient) call(ctx context.Context, endpoint string, service string, action string, params []soapParam) ([]byte, error) {
	envelope := buildSOAPEnvelope(action, service, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(envelope))
	if err != nil {
		return nil, &ProtocolError{Action: action, Err: err}
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf(`"%s#%s"`, service, action))

	c.logger.WithFields(log.Fields{"endpoint": endpoint, "action": action}).Trace("upnp soap request")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ProtocolError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProtocolError{Action: action, Err: err}
	}
	if resp.StatusCode >= 400 {
		var fault soapFault
		_ = xml.Unmarshal(body, &fault)
		c.logger.WithFields(log.Fields{
			"endpoint": endpoint,
			"action":   action,
			"status":   resp.Status,
			"code":     fault.Code,
		}).Debug("upnp soap error")
		return nil, &ProtocolError{
			Action: action,
			Code:   fault.Code,
			Err:    fmt.Errorf("upnp error: %s", resp.Status),
		}
	}
	return body, nil
}

func buildSOAPEnvelope(action string, service string, params []soapParam) string {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0"?>`)
	buf.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	buf.WriteString(`<s:Body><u:` + action + ` xmlns:u="` + service + `">`)
	buf.WriteString(`<InstanceID>0</InstanceID>`)
	for _, p := range params {
		buf.WriteString("<" + p.name + ">")
		_ = xml.EscapeText(&buf, []byte(p.value))
		buf.WriteString("</" + p.name + ">")
	}
	buf.WriteString(`</u:` + action + `></s:Body></s:Envelope>`)
	return buf.String()
}
