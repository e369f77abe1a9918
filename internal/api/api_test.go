package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"go.uber.org/zap/zapcore"

	"github.com/rflorenc/shopify-metadata-migrator/internal/logging"
	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
	"github.com/rflorenc/shopify-metadata-migrator/internal/platform"
)

// fakeShop is an in-memory Platform keyed by store domain.
type fakeShop struct {
	mu          sync.Mutex
	name        string
	pingErr     error
	metaobjects []models.MetaobjectDefinitionNode
	metafields  map[string][]models.MetafieldDefinitionNode
	created     []string
}

func (f *fakeShop) Ping(ctx context.Context) (string, error) {
	if f.pingErr != nil {
		return "", f.pingErr
	}
	return f.name, nil
}

func (f *fakeShop) MetaobjectDefinitions(ctx context.Context) (*platform.MetaobjectDefinitionPage, error) {
	return &platform.MetaobjectDefinitionPage{Definitions: f.metaobjects}, nil
}

func (f *fakeShop) MetafieldDefinitions(ctx context.Context, ownerType string) (*platform.MetafieldDefinitionPage, error) {
	return &platform.MetafieldDefinitionPage{Definitions: f.metafields[ownerType]}, nil
}

func (f *fakeShop) CreateMetaobjectDefinition(ctx context.Context, def models.MetaobjectDefinitionInput) ([]models.UserError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, def.Type)
	return nil, nil
}

func (f *fakeShop) CreateMetafieldDefinition(ctx context.Context, def models.MetafieldDefinitionInput) ([]models.UserError, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, def.Namespace+"."+def.Key)
	return nil, nil
}

func (f *fakeShop) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type testEnv struct {
	server *Server
	ts     *httptest.Server
	shops  map[string]*fakeShop
	source *models.Store
	target *models.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	shops := map[string]*fakeShop{
		"source-shop": {
			name: "Source",
			metaobjects: []models.MetaobjectDefinitionNode{
				{ID: "gid://1", Name: "Author", Type: "author", FieldDefinitions: []models.MetaobjectFieldDefinitionNode{
					{Key: "name", Name: "Name", Type: models.TypeRef{Name: "single_line_text_field"}},
				}},
				{ID: "gid://2", Name: "Book", Type: "book", FieldDefinitions: []models.MetaobjectFieldDefinitionNode{
					{Key: "author", Name: "Author", Type: models.TypeRef{Name: "metaobject_reference"}},
				}},
			},
			metafields: map[string][]models.MetafieldDefinitionNode{
				"PRODUCT": {{ID: "gid://9", Namespace: "custom", Key: "color", OwnerType: "PRODUCT", Name: "Color",
					Type: models.TypeRef{Name: "single_line_text_field"}}},
			},
		},
		"target-shop": {name: "Target"},
		"broken-shop": {pingErr: errors.New("HTTP 401")},
	}

	s := NewServer(nil, logging.Normal)
	s.NewPlatform = func(store *models.Store) platform.Platform {
		return shops[store.Handle()]
	}
	ts := httptest.NewServer(NewRouter(s))
	t.Cleanup(ts.Close)

	src := &models.Store{Name: "source", Domain: "source-shop", Token: "src"}
	dst := &models.Store{Name: "target", Domain: "target-shop", Token: "dst"}
	s.Stores.Create(src)
	s.Stores.Create(dst)
	return &testEnv{server: s, ts: ts, shops: shops, source: src, target: dst}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (e *testEnv) waitForJob(t *testing.T, id string) *models.Job {
	t.Helper()
	job := e.server.Jobs.Get(id)
	if job == nil {
		t.Fatalf("job %s not found", id)
	}
	deadline := time.Now().Add(5 * time.Second)
	for !job.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not finish", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return job
}

func jobID(t *testing.T, data []byte) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil || out["job_id"] == "" {
		t.Fatalf("response %s has no job_id", data)
	}
	return out["job_id"]
}

func TestStoreHandlers(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, "POST", "/api/stores", map[string]string{"token": "x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("create without domain = %d, want 400", resp.StatusCode)
	}
	resp, _ = env.do(t, "POST", "/api/stores", map[string]string{"domain": "x", "token": "x", "api_version": "bogus"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("create with bad version = %d, want 400", resp.StatusCode)
	}

	resp, data := env.do(t, "POST", "/api/stores", map[string]string{"domain": "https://staging-shop.myshopify.com/", "token": "shpat_x"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d: %s", resp.StatusCode, data)
	}
	var created models.Store
	json.Unmarshal(data, &created)
	if created.ID == "" || created.Name != "staging-shop" || created.APIVersion != models.DefaultAPIVersion {
		t.Errorf("created = %+v", created)
	}
	if strings.Contains(string(data), "shpat_x") {
		t.Error("create response leaks the token")
	}

	_, data = env.do(t, "GET", "/api/stores", nil)
	var stores []models.Store
	if err := json.Unmarshal(data, &stores); err != nil {
		t.Fatal(err)
	}
	if len(stores) != 3 {
		t.Errorf("len(stores) = %d, want 3", len(stores))
	}
	if strings.Contains(string(data), "shpat_x") || strings.Contains(string(data), `"src"`) {
		t.Error("list response leaks tokens")
	}

	resp, _ = env.do(t, "DELETE", "/api/stores/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", resp.StatusCode)
	}
	resp, _ = env.do(t, "DELETE", "/api/stores/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", resp.StatusCode)
	}
}

func TestTestStore(t *testing.T) {
	env := newTestEnv(t)
	broken := &models.Store{Name: "broken", Domain: "broken-shop", Token: "x"}
	env.server.Stores.Create(broken)

	_, data := env.do(t, "POST", "/api/stores/"+env.source.ID+"/test", nil)
	if !strings.Contains(string(data), `"ok":true`) || !strings.Contains(string(data), "Source") {
		t.Errorf("test source = %s", data)
	}
	if got := env.server.Stores.Get(env.source.ID); got.PingStatus != "ok" {
		t.Errorf("PingStatus = %q", got.PingStatus)
	}

	_, data = env.do(t, "POST", "/api/stores/"+broken.ID+"/test", nil)
	if !strings.Contains(string(data), `"ok":false`) || !strings.Contains(string(data), "HTTP 401") {
		t.Errorf("test broken = %s", data)
	}

	resp, _ := env.do(t, "POST", "/api/stores/missing/test", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("test missing = %d, want 404", resp.StatusCode)
	}
}

func TestDefinitionHandlers(t *testing.T) {
	env := newTestEnv(t)

	_, data := env.do(t, "GET", "/api/stores/"+env.source.ID+"/definitions/metaobjects", nil)
	if !strings.Contains(string(data), `"type":"author"`) || !strings.Contains(string(data), `"has_next_page":false`) {
		t.Errorf("metaobjects = %s", data)
	}

	_, data = env.do(t, "GET", "/api/stores/"+env.source.ID+"/definitions/metafields/product", nil)
	if !strings.Contains(string(data), `"owner_type":"PRODUCT"`) || !strings.Contains(string(data), `"key":"color"`) {
		t.Errorf("metafields = %s", data)
	}

	_, data = env.do(t, "GET", "/api/stores/"+env.target.ID+"/definitions/metafields/COLLECTION", nil)
	if !strings.Contains(string(data), `"definitions":[]`) {
		t.Errorf("empty metafields = %s", data)
	}

	resp, _ := env.do(t, "GET", "/api/stores/"+env.source.ID+"/definitions/metafields/bad-type", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad owner type = %d, want 400", resp.StatusCode)
	}
}

func TestMigrationPreviewThenRun(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, "POST", "/api/migrate/preview", map[string]interface{}{
		"source_id":   "source",
		"metaobjects": true,
		"metafields":  true,
		"owner_types": []string{"product"},
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("preview = %d: %s", resp.StatusCode, data)
	}
	previewID := jobID(t, data)
	if job := env.waitForJob(t, previewID); job.State() != models.JobCompleted {
		t.Fatalf("preview job = %+v", job.View())
	}

	_, data = env.do(t, "GET", "/api/migrate/preview/"+previewID, nil)
	var preview models.MigrationPreview
	if err := json.Unmarshal(data, &preview); err != nil {
		t.Fatal(err)
	}
	if create, skip := preview.Counts(); create != 2 || skip != 1 {
		t.Errorf("preview counts = %d/%d, want 2/1: %s", create, skip, data)
	}

	resp, data = env.do(t, "POST", "/api/migrate/run", map[string]string{
		"preview_job_id": previewID,
		"target_id":      env.target.ID,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("run = %d: %s", resp.StatusCode, data)
	}
	runID := jobID(t, data)
	job := env.waitForJob(t, runID)
	if job.State() != models.JobCompleted {
		t.Fatalf("run job = %+v", job.View())
	}
	if got := env.shops["target-shop"].createdCount(); got != 2 {
		t.Errorf("target creates = %d, want 2", got)
	}

	_, data = env.do(t, "GET", "/api/jobs/"+runID, nil)
	var view models.JobView
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatal(err)
	}
	if view.Summary == nil || view.Summary.Metaobjects.Processed != 2 || view.Summary.Metaobjects.Skipped != 1 ||
		view.Summary.Metafields.Created != 1 {
		t.Errorf("summary = %+v", view.Summary)
	}
	if !strings.Contains(strings.Join(view.Output, "\n"), "--- Migration Summary ---") {
		t.Errorf("job output missing summary:\n%s", strings.Join(view.Output, "\n"))
	}
	if env.server.Previews.Get(previewID) != nil {
		t.Error("preview cache should be cleared after the run")
	}

	_, data = env.do(t, "GET", "/metrics", nil)
	for _, want := range []string{
		`shopify_migrator_runs_total{result="completed"} 1`,
		`shopify_migrator_definitions_total{category="metaobjects",status="skipped"} 1`,
		`shopify_migrator_run_duration_seconds_count 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMigrationRunValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"unknown source", map[string]interface{}{"source_id": "nope", "target_id": "target", "metaobjects": true}, http.StatusNotFound},
		{"unknown target", map[string]interface{}{"source_id": "source", "target_id": "nope", "metaobjects": true}, http.StatusNotFound},
		{"same store", map[string]interface{}{"source_id": "source", "target_id": "source", "metaobjects": true}, http.StatusBadRequest},
		{"nothing selected", map[string]interface{}{"source_id": "source", "target_id": "target"}, http.StatusBadRequest},
		{"metafields without owners", map[string]interface{}{"source_id": "source", "target_id": "target", "metafields": true}, http.StatusBadRequest},
		{"unknown preview", map[string]interface{}{"preview_job_id": "nope", "target_id": "target"}, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, data := env.do(t, "POST", "/api/migrate/run", tc.body)
			if resp.StatusCode != tc.status {
				t.Errorf("status = %d, want %d: %s", resp.StatusCode, tc.status, data)
			}
		})
	}

	resp, _ := env.do(t, "POST", "/api/migrate/run", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body = %d, want 400", resp.StatusCode)
	}
}

func TestJobHandlers(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, "GET", "/api/jobs/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get missing = %d, want 404", resp.StatusCode)
	}

	running := env.server.Jobs.Create("migration-run", env.source.ID, env.target.ID)
	cancelled := make(chan struct{})
	running.SetCancel(func() { close(cancelled) })

	resp, _ = env.do(t, "POST", "/api/jobs/"+running.ID+"/cancel", nil)
	if resp.StatusCode != http.StatusOK || running.State() != models.JobCancelled {
		t.Errorf("cancel = %d, state=%s", resp.StatusCode, running.State())
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("cancel func was not called")
	}
	resp, _ = env.do(t, "POST", "/api/jobs/"+running.ID+"/cancel", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second cancel = %d, want 409", resp.StatusCode)
	}

	_, data := env.do(t, "GET", "/api/jobs", nil)
	var views []models.JobView
	if err := json.Unmarshal(data, &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].Status != models.JobCancelled {
		t.Errorf("jobs = %+v", views)
	}
}

func TestStreamJobLogs(t *testing.T) {
	env := newTestEnv(t)
	job := env.server.Jobs.Create("migration-run", env.source.ID, env.target.ID)
	job.AppendLog("first line")
	job.AppendLog("second line")
	job.Complete()

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws/jobs/" + job.ID + "/logs"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var got []string
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("read: %v", err)
			}
			break
		}
		got = append(got, string(msg))
	}
	if strings.Join(got, "|") != "first line|second line" {
		t.Errorf("streamed = %v", got)
	}

	resp, _ := env.do(t, "GET", "/ws/jobs/missing/logs", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing job stream = %d, want 404", resp.StatusCode)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteSummary_LogsWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Normal, zapcore.AddSync(&buf))
	writeSummary(failingWriter{}, models.NewRunSummary(), logger)
	if !strings.Contains(buf.String(), "writing run summary failed") || !strings.Contains(buf.String(), "disk full") {
		t.Errorf("log output = %q, want the write failure", buf.String())
	}

	var out bytes.Buffer
	buf.Reset()
	writeSummary(&out, models.NewRunSummary(), logger)
	if !strings.Contains(out.String(), "Migration Summary") || buf.Len() != 0 {
		t.Errorf("summary = %q, log = %q", out.String(), buf.String())
	}
}
