package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	. "github.com/Capstone-Portal-Project/capstone-portal-project-sub000/apps/api/echo"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/storage/database/inmem"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/tests"
)

var errMissingToken = ErrorResponse{Error: true, Message: "missing or malformed jwt"}

type testApp struct {
	Server
	conf *core.Config
	repo preference.Repository
}

func setup(t *testing.T, wrap ...func(svc preference.Service) preference.Service) testApp {
	conf := testutil.NewConfig()
	logger, _ := testutil.NewLogger(conf)

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	preference.InitValidators(validate, translator)

	repo := inmemdb.NewPreferenceRepository(inmemdb.Open())
	svc := preference.NewService(repo, validate, logger, conf)
	for _, w := range wrap {
		svc = w(svc)
	}

	return testApp{
		Server: NewServer(ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Translator:    translator,
			PreferenceSvc: svc,
		}),
		conf: conf,
		repo: repo,
	}
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (app testApp) run(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, userID int64, roles ...string) string {
	token, err := GenerateToken(NewClaims(userID, time.Hour, conf, roles...), conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
