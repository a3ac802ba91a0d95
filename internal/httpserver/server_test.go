package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlship/mlship/internal/forest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeModel struct {
	ready      bool
	class      int
	prob       float64
	predictErr error
	retrainErr error
	retrained  int
	info       forest.Info
}

func (f *fakeModel) Ready() bool { return f.ready }

func (f *fakeModel) Predict(features []float64) (int, float64, error) {
	if f.predictErr != nil {
		return 0, 0, f.predictErr
	}
	return f.class, f.prob, nil
}

func (f *fakeModel) Info() (forest.Info, error) {
	if !f.ready {
		return forest.Info{}, errors.New("model not loaded")
	}
	return f.info, nil
}

func (f *fakeModel) Retrain() error {
	f.retrained++
	return f.retrainErr
}

func newTestServer(t *testing.T, m *fakeModel) *gin.Engine {
	t.Helper()

	srv := NewServer("", m)
	srv.startTime = time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	srv.routes(r)
	return r
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestServer(t, &fakeModel{ready: true})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("health status = %v, want healthy", body["status"])
	}
}

func TestHealthEndpoint_ModelNotLoaded(t *testing.T) {
	r := newTestServer(t, &fakeModel{ready: false})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestPredictEndpoint(t *testing.T) {
	r := newTestServer(t, &fakeModel{ready: true, class: 1, prob: 0.93})

	body := `{"features": [0.5, -1.2, 3.1, 0.0]}`
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("predict status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal predict: %v", err)
	}
	if resp["prediction"] != float64(1) {
		t.Errorf("prediction = %v, want 1", resp["prediction"])
	}
	if resp["probability"] != 0.93 {
		t.Errorf("probability = %v, want 0.93", resp["probability"])
	}
	echoed, ok := resp["features"].([]interface{})
	if !ok || len(echoed) != 4 || echoed[0] != 0.5 || echoed[1] != -1.2 {
		t.Errorf("features = %v, want the submitted values echoed back", resp["features"])
	}
}

func TestPredictEndpoint_MissingFeatures(t *testing.T) {
	r := newTestServer(t, &fakeModel{ready: true})

	body := `{"rows": [1, 2]}`
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("predict status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPredictEndpoint_InvalidJSON(t *testing.T) {
	r := newTestServer(t, &fakeModel{ready: true})

	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("predict status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPredictEndpoint_WrongDimensions(t *testing.T) {
	r := newTestServer(t, &fakeModel{ready: true, predictErr: errors.New("expected 4 features, got 2")})

	body := `{"features": [1, 2]}`
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("predict status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPredictEndpoint_WrongMethod(t *testing.T) {
	r := newTestServer(t, &fakeModel{ready: true})

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Gin returns 405 for method not allowed when a route exists but not for this method
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("predict GET status = %d, want 405 or 404", w.Code)
	}
}

func TestModelInfoEndpoint(t *testing.T) {
	r := newTestServer(t, &fakeModel{
		ready: true,
		info: forest.Info{
			ModelType: "RandomForestClassifier",
			Features:  4,
			Trees:     100,
			Accuracy:  0.91,
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/model/info", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("info status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal info: %v", err)
	}
	if resp["model_type"] != "RandomForestClassifier" {
		t.Errorf("model_type = %v", resp["model_type"])
	}
	if resp["n_estimators"] != float64(100) {
		t.Errorf("n_estimators = %v, want 100", resp["n_estimators"])
	}
}

func TestModelInfoEndpoint_NotLoaded(t *testing.T) {
	r := newTestServer(t, &fakeModel{ready: false})

	req := httptest.NewRequest(http.MethodGet, "/model/info", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("info status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestRetrainEndpoint(t *testing.T) {
	m := &fakeModel{ready: true, info: forest.Info{Accuracy: 0.88}}
	r := newTestServer(t, m)

	req := httptest.NewRequest(http.MethodPost, "/retrain", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("retrain status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if m.retrained != 1 {
		t.Errorf("retrained %d times, want 1", m.retrained)
	}
}

func TestRetrainEndpoint_Failure(t *testing.T) {
	r := newTestServer(t, &fakeModel{ready: true, retrainErr: errors.New("training blew up")})

	req := httptest.NewRequest(http.MethodPost, "/retrain", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("retrain status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestGinRecovery(t *testing.T) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("panic recovery status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
