package kiosk

import (
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/handauth/internal/capture"
	"github.com/harrylevesque/handauth/internal/client"
	"github.com/harrylevesque/handauth/internal/result"
)

type upstream struct {
	mu       sync.Mutex
	requests []client.Request
	paths    []string
	logouts  int
}

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(client.RegisterPath, u.record)
	mux.HandleFunc(client.LoginPath, u.record)
	mux.HandleFunc(client.LogoutPath, func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.logouts++
		u.mu.Unlock()
		http.Redirect(w, r, "/", http.StatusFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (u *upstream) record(w http.ResponseWriter, r *http.Request) {
	var req client.Request
	_ = json.NewDecoder(r.Body).Decode(&req)
	u.mu.Lock()
	u.requests = append(u.requests, req)
	u.paths = append(u.paths, r.URL.Path)
	u.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		result.Result
		User string `json:"user"`
	}{result.OK("Login successful!"), req.Username})
}

func handImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 220, G: 170, B: 140, A: 255}}, image.Point{}, draw.Src)
	return img
}

func setup(t *testing.T) (*httptest.Server, *upstream, *capture.Capture) {
	t.Helper()
	up := &upstream{}
	upSrv := httptest.NewServer(up.handler())
	t.Cleanup(upSrv.Close)

	api, err := client.New(upSrv.URL)
	require.NoError(t, err)
	cam := capture.New(capture.NewImageDevice(handImage()), nil, nil)

	srv := httptest.NewServer(NewServer(cam, api, nil).Router())
	t.Cleanup(srv.Close)
	return srv, up, cam
}

func postJSON(t *testing.T, url, body string) (*http.Response, result.Result) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var r result.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	return resp, r
}

func TestHealth_AssignsRequestID(t *testing.T) {
	srv, _, _ := setup(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\n", string(body))
	assert.NotEmpty(t, resp.Header.Get(client.RequestIDHeader))
}

func TestRequestID_Echoed(t *testing.T) {
	srv, _, _ := setup(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	req.Header.Set(client.RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get(client.RequestIDHeader))
}

func TestIndex(t *testing.T) {
	srv, _, _ := setup(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "/api/register")
}

func TestCamera_Lifecycle(t *testing.T) {
	srv, _, cam := setup(t)

	_, r := postJSON(t, srv.URL+"/camera/capture", "")
	assert.False(t, r.Success)
	assert.Equal(t, "Camera not started", r.Message)

	_, r = postJSON(t, srv.URL+"/camera/start", "")
	require.True(t, r.Success)
	assert.True(t, cam.IsActive())

	_, r = postJSON(t, srv.URL+"/camera/capture", "")
	require.True(t, r.Success)
	assert.True(t, strings.HasPrefix(r.Image, "data:image/jpeg;base64,"))

	resp, err := http.Get(srv.URL + "/camera/status")
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.True(t, st.Active)
	assert.True(t, st.HasFrame)
	assert.True(t, strings.HasPrefix(st.CaptureSession, "cs--"))

	_, r = postJSON(t, srv.URL+"/camera/stop", "")
	assert.True(t, r.Success)
	assert.False(t, cam.IsActive())

	resp, err = http.Get(srv.URL + "/camera/frame")
	require.NoError(t, err)
	var frame result.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, cam.CapturedImage(), frame.Image)
}

func TestCamera_FrameMissing(t *testing.T) {
	srv, _, _ := setup(t)

	resp, err := http.Get(srv.URL + "/camera/frame")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCamera_WrongMethod(t *testing.T) {
	srv, _, _ := setup(t)

	resp, err := http.Get(srv.URL + "/camera/start")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRegister_UsesKioskCamera(t *testing.T) {
	srv, up, cam := setup(t)

	_, r := postJSON(t, srv.URL+"/api/register", `{"username":"alice"}`)

	require.True(t, r.Success)
	require.Len(t, up.requests, 1)
	assert.Equal(t, client.RegisterPath, up.paths[0])
	assert.Equal(t, "alice", up.requests[0].Username)
	assert.True(t, strings.HasPrefix(up.requests[0].Image, "data:image/jpeg;base64,"))
	assert.False(t, cam.IsActive())
}

func TestLogin_BrowserFrame(t *testing.T) {
	srv, up, _ := setup(t)
	img, err := capture.EncodeDataURL(handImage(), capture.DefaultQuality)
	require.NoError(t, err)

	body, _ := json.Marshal(client.Request{Username: "alice", Image: img})
	_, r := postJSON(t, srv.URL+"/api/login", string(body))

	require.True(t, r.Success)
	assert.Equal(t, "Login successful!", r.Message)
	require.Len(t, up.requests, 1)
	assert.Equal(t, client.LoginPath, up.paths[0])
	assert.Equal(t, img, up.requests[0].Image)
}

func TestSubmit_RejectedLocally(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"short username", `{"username":"ab"}`, "Username must be at least 3 characters"},
		{"bad charset with image", `{"username":"bad name!","image":"data:image/jpeg;base64,Zm9v"}`, "Username can only contain letters, numbers, hyphens, and underscores"},
		{"not a data uri", `{"username":"alice","image":"hello"}`, "Image must be an image data URI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, up, _ := setup(t)

			_, r := postJSON(t, srv.URL+"/api/login", tt.body)

			assert.False(t, r.Success)
			assert.Equal(t, tt.want, r.Message)
			assert.Empty(t, up.requests)
		})
	}
}

func TestSubmit_BadJSON(t *testing.T) {
	srv, up, _ := setup(t)

	resp, r := postJSON(t, srv.URL+"/api/register", "{")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, r.Success)
	assert.Empty(t, up.requests)
}

func TestLogout_RedirectsHome(t *testing.T) {
	srv, up, cam := setup(t)
	_, r := postJSON(t, srv.URL+"/camera/start", "")
	require.True(t, r.Success)

	noFollow := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := noFollow.Get(srv.URL + client.LogoutPath)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 1, up.logouts)
	assert.False(t, cam.IsActive())
}

func TestLogin_BrowserFrameRelaysServerBody(t *testing.T) {
	srv, _, _ := setup(t)
	img, err := capture.EncodeDataURL(handImage(), capture.DefaultQuality)
	require.NoError(t, err)
	body, _ := json.Marshal(client.Request{Username: "alice", Image: img})

	resp, err := http.Post(srv.URL+"/api/login", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	got, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"message":"Login successful!","user":"alice"}`, string(got))
}
