package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"com.aiac.relay/pkg/config"
	"com.aiac.relay/pkg/controller"
	"com.aiac.relay/pkg/core/store/commands"
	"com.aiac.relay/pkg/core/store/historical"
	"com.aiac.relay/pkg/core/store/sensors"
	"com.aiac.relay/pkg/core/store/vehicle"
	"com.aiac.relay/pkg/relay"
	"com.aiac.relay/pkg/stream"
	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

type mockSupervisor struct {
	mu       sync.Mutex
	starts   int
	stops    int
	running  bool
	startErr error
}

func (m *mockSupervisor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.startErr != nil {
		return m.startErr
	}
	m.running = true
	return nil
}

func (m *mockSupervisor) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	if !m.running {
		return stream.ErrViewerTerminationFailed
	}
	m.running = false
	return nil
}

func (m *mockSupervisor) Status() stream.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return stream.Status{State: stream.Streaming, ViewerPID: 42, StartedAt: time.Now()}
	}
	return stream.Status{State: stream.Idle}
}

type testEnv struct {
	server       *ApiServer
	supervisor   *mockSupervisor
	commandStore commands.CommandStore
	sensorStore  sensors.SensorStore
	stateStore   vehicle.StateStore
	tsStore      historical.TimeSeriesStore
}

func newTestEnv(t *testing.T, controllerURL string) *testEnv {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		supervisor:   &mockSupervisor{},
		commandStore: commands.NewCommandLocalStore(db),
		sensorStore:  sensors.NewSensorLocalStore(db),
		stateStore:   vehicle.NewStateLocalStore(db),
		tsStore:      historical.NewTimeSeriesLocalStore(db),
	}
	client := controller.NewClient(config.ControllerConfig{URL: controllerURL, Timeout: time.Second})
	r := relay.NewRelay(env.commandStore, env.sensorStore, client, nil, "aiac")
	env.server = NewServer(r, env.supervisor, env.stateStore, env.tsStore, "aiac", config.APIServerConfig{Port: 0})
	return env
}

func (env *testEnv) do(t *testing.T, method, path, contentType string, body []byte) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := env.server.App().Test(req, 3000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := ioutil.ReadAll(resp.Body)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func controllerServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func closedURL() string {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url + "/move"
}

func TestMove_Success(t *testing.T) {
	ctrl := controllerServer(t, http.StatusOK, `{"result":"moving"}`)
	env := newTestEnv(t, ctrl.URL)

	status, body := env.do(t, "POST", "/move/", "application/json", []byte(`{"direction":"forward","speed":50}`))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if body["status"] != "success" {
		t.Errorf("unexpected envelope %v", body)
	}
	command := body["command"].(map[string]interface{})
	if command["direction"] != "forward" || command["speed"] != float64(50) || command["id"] == "" {
		t.Errorf("unexpected command %v", command)
	}
	if body["controller_response"].(map[string]interface{})["result"] != "moving" {
		t.Errorf("unexpected controller response %v", body["controller_response"])
	}
}

func TestMove_ControllerUnreachable(t *testing.T) {
	env := newTestEnv(t, closedURL())

	status, body := env.do(t, "POST", "/move/", "application/json", []byte(`{"direction":"forward","speed":50}`))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if body["status"] != "error" || !strings.Contains(body["detail"].(string), "Erro de conexão") {
		t.Errorf("unexpected envelope %v", body)
	}

	list, err := env.commandStore.ListCommands(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Direction != "forward" || list[0].Speed != 50 {
		t.Errorf("expected the command to be persisted, got %+v", list)
	}
}

func TestMove_ControllerRejected(t *testing.T) {
	ctrl := controllerServer(t, http.StatusBadRequest, `bad`)
	env := newTestEnv(t, ctrl.URL)

	status, body := env.do(t, "POST", "/move/", "application/json", []byte(`{"direction":"forward","speed":50}`))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if !strings.Contains(body["detail"].(string), "Falha ao enviar comando") {
		t.Errorf("unexpected detail %v", body["detail"])
	}
}

func TestMove_Validation(t *testing.T) {
	env := newTestEnv(t, closedURL())

	cases := []string{
		`{"direction":"forward"}`,
		`{"speed":10}`,
		`{"direction":"forward","speed":"fast"}`,
		`{"direction":"  ","speed":10}`,
		`not json`,
	}
	for _, c := range cases {
		status, body := env.do(t, "POST", "/move/", "application/json", []byte(c))
		if status != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d", c, status)
		}
		if body["status"] != "error" {
			t.Errorf("%s: unexpected envelope %v", c, body)
		}
	}

	list, _ := env.commandStore.ListCommands(context.Background())
	if len(list) != 0 {
		t.Errorf("invalid requests must not be stored, got %d", len(list))
	}
}

func TestSensor_RoundTrip(t *testing.T) {
	env := newTestEnv(t, closedURL())

	payload := `{"battery_temperature":36.6,"current_position":"A1","battery_status":"ok","lights_on":true}`
	status, body := env.do(t, "POST", "/sensor/", "application/json", []byte(payload))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	data := body["sensor_data"].(map[string]interface{})
	if data["battery_temperature"] != 36.6 || data["lights_on"] != true || data["id"] == nil {
		t.Errorf("unexpected sensor data %v", data)
	}

	list, _ := env.sensorStore.ListSensorData(context.Background())
	if len(list) != 1 || list[0].CurrentPosition != "A1" || list[0].BatteryStatus != "ok" {
		t.Errorf("unexpected stored data %+v", list)
	}
}

func TestSensor_CBOR(t *testing.T) {
	env := newTestEnv(t, closedURL())

	payload, err := cbor.Marshal(map[string]interface{}{
		"battery_temperature": 20.5,
		"current_position":    "dock",
		"battery_status":      "full",
		"lights_on":           false,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	status, body := env.do(t, "POST", "/sensor/", "application/cbor", payload)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	data := body["sensor_data"].(map[string]interface{})
	if data["current_position"] != "dock" {
		t.Errorf("unexpected sensor data %v", data)
	}
}

func TestSensor_MissingFields(t *testing.T) {
	env := newTestEnv(t, closedURL())

	status, body := env.do(t, "POST", "/sensor/", "application/json", []byte(`{"battery_temperature":36.6}`))
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", status)
	}
	detail := body["detail"].(string)
	if !strings.Contains(detail, "current_position") || !strings.Contains(detail, "lights_on") {
		t.Errorf("detail should name the missing fields: %q", detail)
	}
}

func TestListCommands(t *testing.T) {
	env := newTestEnv(t, closedURL())

	req := httptest.NewRequest("GET", "/commands/", nil)
	resp, err := env.server.App().Test(req, 3000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	raw, _ := ioutil.ReadAll(resp.Body)
	if strings.TrimSpace(string(raw)) != "[]" {
		t.Errorf("expected empty array, got %q", raw)
	}

	env.commandStore.InsertCommand(context.Background(), "left", 10)
	env.commandStore.InsertCommand(context.Background(), "right", 20)

	resp, err = env.server.App().Test(httptest.NewRequest("GET", "/commands/", nil), 3000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var list []commands.Command
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].Direction != "left" || list[1].Speed != 20 {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestStream_StartAndStop(t *testing.T) {
	env := newTestEnv(t, closedURL())

	status, body := env.do(t, "GET", "/start-stream/", "", nil)
	if status != http.StatusOK || body["status"] != "success" || body["message"] != "Transmissão iniciada" {
		t.Fatalf("unexpected start response %d %v", status, body)
	}

	status, body = env.do(t, "GET", "/health/", "", nil)
	if status != http.StatusOK || body["stream"] != "streaming" {
		t.Errorf("unexpected health %v", body)
	}

	status, body = env.do(t, "GET", "/stop-stream/", "", nil)
	if status != http.StatusOK || body["message"] != "Transmissão interrompida" {
		t.Fatalf("unexpected stop response %d %v", status, body)
	}

	status, body = env.do(t, "GET", "/stop-stream/", "", nil)
	if status != http.StatusInternalServerError || body["detail"] != "Erro ao interromper a transmissão" {
		t.Errorf("stop while idle: unexpected response %d %v", status, body)
	}
}

func TestStream_StartFailure(t *testing.T) {
	env := newTestEnv(t, closedURL())
	env.supervisor.startErr = errors.New("viewer launch failed: exec: \"ffplay\": executable file not found")

	status, body := env.do(t, "GET", "/start-stream/", "", nil)
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if !strings.HasPrefix(body["detail"].(string), "Erro ao iniciar a transmissão: ") {
		t.Errorf("unexpected detail %v", body["detail"])
	}
}

func TestVehicleStatus(t *testing.T) {
	env := newTestEnv(t, closedURL())

	status, _ := env.do(t, "GET", "/status/", "", nil)
	if status != http.StatusNotFound {
		t.Errorf("expected 404 before telemetry, got %d", status)
	}

	err := env.stateStore.UpsertState(context.Background(), "aiac", time.Now(), map[string]interface{}{"battery_status": "ok"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	status, body := env.do(t, "GET", "/status/", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["data"].(map[string]interface{})["battery_status"] != "ok" {
		t.Errorf("unexpected state %v", body)
	}
}

func TestSensorHistory(t *testing.T) {
	env := newTestEnv(t, closedURL())
	ctx := context.Background()

	env.tsStore.InsertDataPoint(ctx, relay.KindSensor, "aiac", time.Now().Add(-time.Hour), map[string]interface{}{"battery_status": "ok"})
	env.tsStore.InsertDataPoint(ctx, relay.KindSensor, "aiac", time.Now().Add(-48*time.Hour), map[string]interface{}{"battery_status": "old"})

	resp, err := env.server.App().Test(httptest.NewRequest("GET", "/sensor/history/", nil), 3000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var points []historical.DataPoint
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(points) != 1 {
		t.Errorf("expected 1 point in the last 24h, got %d", len(points))
	}

	resp, err = env.server.App().Test(httptest.NewRequest("GET", "/sensor/history/?hours=72", nil), 3000)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	points = nil
	json.NewDecoder(resp.Body).Decode(&points)
	if len(points) != 2 {
		t.Errorf("expected 2 points in the last 72h, got %d", len(points))
	}

	status, _ := env.do(t, "GET", "/sensor/history/?hours=-1", "", nil)
	if status != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for bad hours, got %d", status)
	}
}
