package sonos

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type recordedCall struct {
	soapAction string
	body       string
}

// fakeRenderer answers every SOAP action with an empty success body unless
// failOn names the action, which gets a UPnP fault instead.
type fakeRenderer struct {
	mutex  sync.Mutex
	calls  []recordedCall
	failOn string
}

func (f *fakeRenderer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	action := r.Header.Get("SOAPACTION")

	f.mutex.Lock()
	f.calls = append(f.calls, recordedCall{soapAction: action, body: string(body)})
	failOn := f.failOn
	f.mutex.Unlock()

	if failOn != "" && strings.HasSuffix(strings.Trim(action, `"`), "#"+failOn) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
<s:Body><s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring>
<detail><UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>701</errorCode></UPnPError></detail>
</s:Fault></s:Body></s:Envelope>`)
		return
	}
	_, _ = io.WriteString(w, `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body/></s:Envelope>`)
}

func (f *fakeRenderer) actions() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		action := strings.Trim(c.soapAction, `"`)
		out = append(out, action[strings.LastIndex(action, "#")+1:])
	}
	return out
}

func newTestSpeaker(t *testing.T, renderer http.Handler, uuid string) *Speaker {
	t.Helper()
	server := httptest.NewServer(renderer)
	t.Cleanup(server.Close)
	logger, _ := test.NewNullLogger()
	return NewSpeaker("Kitchen", uuid, server.URL+defaultAVTransportPath, server.Client(), log.NewEntry(logger))
}

func TestBuildSOAPEnvelope(t *testing.T) {
	got := buildSOAPEnvelope("AddURIToQueue", avTransportService, []soapParam{
		{"EnqueuedURI", "x-sonos-spotify:a?b%26c"},
		{"EnqueuedURIMetaData", "<DIDL/>"},
		{"DesiredFirstTrackNumberEnqueued", "0"},
	})

	if !strings.Contains(got, `<u:AddURIToQueue xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">`) {
		t.Errorf("envelope is missing the action element: %s", got)
	}
	if !strings.Contains(got, "<EnqueuedURIMetaData>&lt;DIDL/&gt;</EnqueuedURIMetaData>") {
		t.Errorf("parameter values should be escaped: %s", got)
	}

	order := []string{"<InstanceID>0</InstanceID>", "<EnqueuedURI>", "<EnqueuedURIMetaData>", "<DesiredFirstTrackNumberEnqueued>"}
	last := -1
	for _, element := range order {
		i := strings.Index(got, element)
		if i <= last {
			t.Fatalf("%s out of order in %s", element, got)
		}
		last = i
	}
}

func TestSpeakerActions(t *testing.T) {
	renderer := &fakeRenderer{}
	speaker := newTestSpeaker(t, renderer, "RINCON_1")
	ctx := context.Background()

	if err := speaker.ClearQueue(ctx); err != nil {
		t.Fatalf("ClearQueue() error = %v", err)
	}
	if err := speaker.AddToQueue(ctx, "x-sonos-spotify:spotify%3Atrack%3Aabc?sid=12%26flags=8224%26sn=2"); err != nil {
		t.Fatalf("AddToQueue() error = %v", err)
	}
	if err := speaker.Play(ctx); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	want := []string{"RemoveAllTracksFromQueue", "AddURIToQueue", "SetAVTransportURI", "Play"}
	got := renderer.actions()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("actions = %v, want %v", got, want)
	}

	if !strings.Contains(renderer.calls[1].body, "<EnqueuedURI>x-sonos-spotify:spotify%3Atrack%3Aabc?sid=12%26flags=8224%26sn=2</EnqueuedURI>") {
		t.Errorf("AddURIToQueue body = %s", renderer.calls[1].body)
	}
	if !strings.Contains(renderer.calls[2].body, "<CurrentURI>x-rincon-queue:RINCON_1#0</CurrentURI>") {
		t.Errorf("SetAVTransportURI body = %s", renderer.calls[2].body)
	}
	if !strings.Contains(renderer.calls[3].body, "<Speed>1</Speed>") {
		t.Errorf("Play body = %s", renderer.calls[3].body)
	}
}

func TestSpeakerPlayWithoutUUID(t *testing.T) {
	renderer := &fakeRenderer{}
	speaker := newTestSpeaker(t, renderer, "")

	if err := speaker.Play(context.Background()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if got := renderer.actions(); len(got) != 1 || got[0] != "Play" {
		t.Errorf("actions = %v, want only Play", got)
	}
}

func TestSpeakerFault(t *testing.T) {
	renderer := &fakeRenderer{failOn: "AddURIToQueue"}
	speaker := newTestSpeaker(t, renderer, "RINCON_1")

	err := speaker.AddToQueue(context.Background(), "x-sonos-spotify:x")
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("AddToQueue() error = %v, want *ProtocolError", err)
	}
	if protoErr.Action != "AddURIToQueue" {
		t.Errorf("Action = %q", protoErr.Action)
	}
	if protoErr.Code != "701" {
		t.Errorf("Code = %q, want 701", protoErr.Code)
	}
}

func TestSpeakerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	speaker := NewSpeaker("Kitchen", "RINCON_1", url, nil, nil)
	err := speaker.ClearQueue(context.Background())
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) || protoErr.Action != "RemoveAllTracksFromQueue" {
		t.Fatalf("ClearQueue() error = %v, want *ProtocolError for RemoveAllTracksFromQueue", err)
	}
}
