package deploy

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/leonpanjtar/metaforge-sub002/internal/platform"
)

// fakeClient is an in-memory platform that records every call.
type fakeClient struct {
	mu    sync.Mutex
	calls map[string]int
	seq   int

	placements map[string]bool // live ad sets
	// unreadable ad sets exist but cannot be read back
	unreadable map[string]bool

	createPlacementErr error
	uploadErr          error
	creativeErr        error
	adErr              error
	adErrOnce          bool
	listPagesErr       error
	pages              []platform.Page
	// verifyCreatedFails makes every newly created placement unreadable
	verifyCreatedFails bool

	placementPayloads []platform.PlacementPayload
	creativePayloads  []platform.CreativePayload
	adPayloads        []platform.AdPayload
	// uploadGate, when set, blocks uploads until closed
	uploadGate chan struct{}
	panicOnAd  bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		calls:      make(map[string]int),
		placements: make(map[string]bool),
		unreadable: make(map[string]bool),
		pages:      []platform.Page{{ID: "page_listed", Name: "Listed"}},
	}
}

func (f *fakeClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeClient) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeClient) record(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	f.seq++
	return f.seq
}

func notFound(ref string) error {
	return &platform.Error{StatusCode: http.StatusBadRequest, Code: 100, Subcode: 33, Type: "GraphMethodException", Message: "object " + ref + " does not exist"}
}

func (f *fakeClient) CreatePlacement(_ context.Context, _ string, p platform.PlacementPayload) (string, error) {
	n := f.record("CreatePlacement")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placementPayloads = append(f.placementPayloads, p)
	if f.createPlacementErr != nil {
		return "", f.createPlacementErr
	}
	ref := fmt.Sprintf("adset_%d", n)
	f.placements[ref] = true
	if f.verifyCreatedFails {
		f.unreadable[ref] = true
	}
	return ref, nil
}

func (f *fakeClient) GetPlacementDetails(_ context.Context, ref string) (*platform.PlacementDetails, error) {
	f.record("GetPlacementDetails")
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.placements[ref] || f.unreadable[ref] {
		return nil, notFound(ref)
	}
	return &platform.PlacementDetails{ID: ref, Status: "ACTIVE"}, nil
}

func (f *fakeClient) UploadMedia(_ context.Context, _ string, kind platform.MediaKind, locator string) (string, error) {
	n := f.record("UploadMedia")
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return fmt.Sprintf("%s_ref_%d", kind, n), nil
}

func (f *fakeClient) CreateCreative(_ context.Context, _ string, p platform.CreativePayload) (string, error) {
	n := f.record("CreateCreative")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creativePayloads = append(f.creativePayloads, p)
	if f.creativeErr != nil {
		return "", f.creativeErr
	}
	return fmt.Sprintf("creative_%d", n), nil
}

func (f *fakeClient) CreateAd(_ context.Context, _ string, p platform.AdPayload) (string, error) {
	n := f.record("CreateAd")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnAd {
		panic("boom")
	}
	f.adPayloads = append(f.adPayloads, p)
	if f.adErr != nil {
		err := f.adErr
		if f.adErrOnce {
			f.adErr = nil
		}
		return "", err
	}
	return fmt.Sprintf("ad_%d", n), nil
}

func (f *fakeClient) GetInsights(_ context.Context, _ string, _ platform.DateRange) (*platform.Insights, error) {
	f.record("GetInsights")
	return &platform.Insights{}, nil
}

func (f *fakeClient) ListPages(_ context.Context, _ string) ([]platform.Page, error) {
	f.record("ListPages")
	if f.listPagesErr != nil {
		return nil, f.listPagesErr
	}
	return f.pages, nil
}
