package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
	"fashion-studio/internal/studio"
)

type stubBackend struct{}

func stubImage(label string) asset.Asset {
	return asset.Asset{Data: []byte(label), MimeType: "image/png"}
}

func (stubBackend) ComposeImage(ctx context.Context, req gemini.ComposeRequest) (asset.Asset, error) {
	return stubImage(req.Angle), nil
}

func (stubBackend) Cutout(ctx context.Context, img asset.Asset) (asset.Asset, error) {
	return stubImage("cutout"), nil
}

func (stubBackend) DescribeForVideo(ctx context.Context, req gemini.DescribeRequest) (string, error) {
	return "slow turn", nil
}

func (stubBackend) StartVideo(ctx context.Context, req gemini.VideoRequest) (string, error) {
	return "operations/" + string(req.Tier), nil
}

func (stubBackend) PollVideo(ctx context.Context, name string) (gemini.Operation, error) {
	return gemini.Operation{Name: name, Done: true, VideoURI: "https://files/" + name}, nil
}

func (stubBackend) VideoURL(uri string) string { return uri }

func (stubBackend) GenerateImage(ctx context.Context, text string, aspectRatio string) (asset.Asset, error) {
	return stubImage("generated " + aspectRatio), nil
}

func (stubBackend) IsolateSubject(ctx context.Context, img asset.Asset) (asset.Asset, error) {
	return stubImage("isolated"), nil
}

type testEnv struct {
	srv     *httptest.Server
	catalog *catalog.Store
	studio  *studio.Studio
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := studio.New(studio.Options{Backend: stubBackend{}, PollInterval: 5 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(st.Close)

	store := catalog.NewStore()
	srv := httptest.NewServer(New(Options{Catalog: store, Studio: st, Generator: stubBackend{}}).Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, catalog: store, studio: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (e *testEnv) state(t *testing.T) stateResponse {
	t.Helper()
	resp, body := e.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st stateResponse
	require.NoError(t, json.Unmarshal(body, &st))
	return st
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	product := e.catalog.Add(catalog.Item{Kind: catalog.KindProduct, Name: "Denim Jacket", Image: stubImage("jacket")})
	model := e.catalog.Add(catalog.Item{Kind: catalog.KindModel, Name: "Ava", Image: stubImage("ava")})
	scene := e.catalog.Add(catalog.Item{Kind: catalog.KindScene, Name: "Mountain View", Image: stubImage("mountain")})

	resp, _ := e.do(t, http.MethodPut, "/api/picks", picksRequest{
		ProductIDs: []int64{product.ID},
		ModelIDs:   []int64{model.ID},
		SceneID:    scene.ID,
		PoseID:     1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3))))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestGenerateAndVideo(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	resp, body := env.do(t, http.MethodPost, "/api/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	env.studio.Wait()

	st := env.state(t)
	assert.Equal(t, "success", st.Phase)
	assert.True(t, st.CanGenerate)
	require.Len(t, st.Jobs, 1)
	job := st.Jobs[0]
	assert.Equal(t, "Ava", job.ModelName)
	assert.Len(t, job.Images, 3)
	require.NotNil(t, job.Representative)
	assert.Equal(t, "front", job.Representative.Angle)
	assert.True(t, strings.HasPrefix(job.Cutout, "data:image/png;base64,"))

	resp, body = env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/video", videoRequest{Tier: "preview"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	require.Eventually(t, func() bool {
		return env.state(t).Jobs[0].Preview.ResultURL != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "https://files/operations/preview", env.state(t).Jobs[0].Preview.ResultURL)

	resp, _ = env.do(t, http.MethodPut, "/api/jobs/"+job.ID+"/display", displayRequest{Display: "video:preview"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPut, "/api/jobs/"+job.ID+"/display", displayRequest{Display: "video:final"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/reset", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "idle", env.state(t).Phase)
	assert.Empty(t, env.state(t).Jobs)
}

func TestGenerate_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/generate", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "validation", out.Code)
	assert.Equal(t, []string{"product", "model", "pose", "scene or color"}, out.Missing)
	assert.Equal(t, "error", env.state(t).Phase)
}

func TestRequestVideo_Errors(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/jobs/nope/video", videoRequest{Tier: "final"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/jobs/nope/video", videoRequest{Tier: "imax"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadModelIsIsolated(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Noor"))
	fw, err := mw.CreateFormFile("image", "noor.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := env.srv.Client().Post(env.srv.URL+"/api/catalog/models", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out uploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Isolated)
	assert.Equal(t, "model", out.Item.Kind)
	assert.True(t, out.Item.IsCustom)

	item, ok := env.catalog.Get(out.Item.ID)
	require.True(t, ok)
	assert.Equal(t, []byte("isolated"), item.Image.Data)
}

func TestUploadRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Tote"))
	fw, err := mw.CreateFormFile("image", "tote.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("not an image"))
	require.NoError(t, mw.Close())

	resp, err := env.srv.Client().Post(env.srv.URL+"/api/catalog/product", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.catalog.List(catalog.KindProduct))
}

func TestGenerateAndDeleteItem(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/catalog/scene/generate", generateItemRequest{Name: "Rooftop", Description: "city at dusk"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var item itemResponse
	require.NoError(t, json.Unmarshal(body, &item))
	assert.Equal(t, "scene", item.Kind)

	stored, ok := env.catalog.Get(item.ID)
	require.True(t, ok)
	assert.Equal(t, []byte("generated 16:9"), stored.Image.Data)

	resp, _ = env.do(t, http.MethodDelete, "/api/catalog/product/"+itoa(item.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/catalog/scene/"+itoa(item.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, ok = env.catalog.Get(item.ID)
	assert.False(t, ok)
}

func TestSetPicks_UnknownID(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPut, "/api/picks", picksRequest{ModelIDs: []int64{99}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIdentityLockPromoteAndLookbook(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	resp, _ := env.do(t, http.MethodPost, "/api/lookbook", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/generate", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	env.studio.Wait()
	jobID := env.state(t).Jobs[0].ID

	resp, body := env.do(t, http.MethodPost, "/api/jobs/"+jobID+"/identity-lock", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var picks picksResponse
	require.NoError(t, json.Unmarshal(body, &picks))
	assert.True(t, picks.IdentityLocked)
	assert.Equal(t, []byte("front"), env.catalog.Picks().IdentityLock.Data)

	resp, body = env.do(t, http.MethodPost, "/api/jobs/"+jobID+"/promote", promoteRequest{Kind: "model", Name: "Ava v2", Source: "side"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var promoted itemResponse
	require.NoError(t, json.Unmarshal(body, &promoted))
	assert.Equal(t, "Ava v2", promoted.Name)
	assert.True(t, promoted.IsCustom)

	resp, _ = env.do(t, http.MethodPost, "/api/jobs/"+jobID+"/promote", promoteRequest{Kind: "model", Source: "back"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/lookbook", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/lookbook", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []lookbookEntryResponse
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Jobs, 1)

	resp, _ = env.do(t, http.MethodDelete, "/api/identity-lock", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, env.catalog.Picks().IdentityLock)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
