package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/observability"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*HTTPClient, *observability.MockMetricsRegistry) {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	metrics := &observability.MockMetricsRegistry{}
	return NewHTTPClient(server.URL, "v19.0", "secret", 2*time.Second, zap.NewNop(), metrics), metrics
}

func TestCreatePlacement(t *testing.T) {
	daily := int64(5000)
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v19.0/act_1/adsets", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5000), body["daily_budget"])
		assert.NotContains(t, body, "lifetime_budget")
		assert.NotContains(t, body, "bid_amount")

		_, _ = w.Write([]byte(`{"id":"adset_9"}`))
	})

	ref, err := client.CreatePlacement(context.Background(), "act_1", PlacementPayload{
		Name:        "p",
		CampaignID:  "c",
		Status:      StatusPaused,
		DailyBudget: &daily,
	})
	require.NoError(t, err)
	assert.Equal(t, "adset_9", ref)
	assert.Equal(t, 1, metrics.Count("platform:create_placement:success"))
}

func TestGetPlacementDetailsNotFound(t *testing.T) {
	client, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Unsupported get request","type":"GraphMethodException","code":100,"error_subcode":33,"fbtrace_id":"tr1"}}`))
	})

	_, err := client.GetPlacementDetails(context.Background(), "adset_gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, 100, pe.Code)
	assert.Equal(t, "GraphMethodException", pe.Type)
	assert.Equal(t, "tr1", pe.TraceID)
	assert.Equal(t, 1, metrics.Count("platform:get_placement:rejected"))
}

func TestGetPlacementDetails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/adset_1", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "effective_status")
		_, _ = w.Write([]byte(`{"id":"adset_1","name":"n","status":"PAUSED","effective_status":"PAUSED","campaign_id":"c1"}`))
	})

	details, err := client.GetPlacementDetails(context.Background(), "adset_1")
	require.NoError(t, err)
	assert.Equal(t, "c1", details.CampaignID)
}

func TestUploadMedia(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/v19.0/act_1/adimages":
			assert.Equal(t, "https://cdn/img.png", body["url"])
			_, _ = w.Write([]byte(`{"images":{"img.png":{"hash":"h123","url":"https://x"}}}`))
		case "/v19.0/act_1/advideos":
			assert.Equal(t, "https://cdn/v.mp4", body["file_url"])
			_, _ = w.Write([]byte(`{"id":"vid_7"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	hash, err := client.UploadMedia(context.Background(), "act_1", MediaImage, "https://cdn/img.png")
	require.NoError(t, err)
	assert.Equal(t, "h123", hash)

	vid, err := client.UploadMedia(context.Background(), "act_1", MediaVideo, "https://cdn/v.mp4")
	require.NoError(t, err)
	assert.Equal(t, "vid_7", vid)

	_, err = client.UploadMedia(context.Background(), "act_1", MediaKind("gif"), "x")
	assert.Error(t, err)
}

func TestCreateCreativeAndAd(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/v19.0/act_1/adcreatives":
			spec := body["object_story_spec"].(map[string]any)
			assert.NotContains(t, spec, "video_data")
			link := spec["link_data"].(map[string]any)
			assert.Equal(t, "", link["description"])
			_, _ = w.Write([]byte(`{"id":"cr_1"}`))
		case "/v19.0/act_1/ads":
			assert.Equal(t, "adset_1", body["adset_id"])
			_, _ = w.Write([]byte(`{"id":"ad_1"}`))
		}
	})

	cr, err := client.CreateCreative(context.Background(), "act_1", CreativePayload{
		Name: "c",
		ObjectStorySpec: ObjectStorySpec{
			PageID:   "page_1",
			LinkData: &LinkData{ImageHash: "h", Link: "https://l"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cr_1", cr)

	ad, err := client.CreateAd(context.Background(), "act_1", AdPayload{
		Name: "a", AdSetID: "adset_1", Creative: CreativeRef{CreativeID: cr}, Status: StatusPaused,
	})
	require.NoError(t, err)
	assert.Equal(t, "ad_1", ad)
}

func TestCreateAdRejectedWithoutEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.CreateAd(context.Background(), "act_1", AdPayload{})
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
	assert.Equal(t, "upstream down", pe.Message)
	assert.False(t, IsNotFound(err))
}

func TestGetInsights(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/ad_1/insights", r.URL.Path)
		assert.JSONEq(t, `{"since":"2024-05-01","until":"2024-05-07"}`, r.URL.Query().Get("time_range"))
		_, _ = w.Write([]byte(`{"data":[{"impressions":"1200","clicks":"30","ctr":"2.5","spend":"12.34","frequency":"1.2","date_start":"2024-05-01","date_stop":"2024-05-07"}]}`))
	})

	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ins, err := client.GetInsights(context.Background(), "ad_1", DateRange{Since: since, Until: since.AddDate(0, 0, 6)})
	require.NoError(t, err)
	assert.Equal(t, int64(1200), ins.Impressions)
	assert.Equal(t, int64(30), ins.Clicks)
	assert.InDelta(t, 2.5, ins.CTR, 1e-9)
	assert.InDelta(t, 12.34, ins.Spend, 1e-9)
	assert.InDelta(t, 1.2, ins.Frequency, 1e-9)
}

func TestGetInsightsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ins, err := client.GetInsights(context.Background(), "ad_1", DateRange{Since: since, Until: since})
	require.NoError(t, err)
	assert.Zero(t, ins.Impressions)
	assert.Equal(t, "2024-05-01", ins.DateStart)
}

func TestListPages(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/me/accounts", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"pg1","name":"Brand"},{"id":"pg2","name":"Other"}]}`))
	})

	pages, err := client.ListPages(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "pg1", pages[0].ID)
}

func TestCallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	metrics := &observability.MockMetricsRegistry{}
	client := NewHTTPClient(server.URL, "v19.0", "", 20*time.Millisecond, zap.NewNop(), metrics)
	_, err := client.GetPlacementDetails(context.Background(), "adset_1")
	require.Error(t, err)
	assert.Equal(t, 1, metrics.Count("platform:get_placement:failure"))
}
