package v0_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"k8s.io/apimachinery/pkg/runtime/schema"

	v0 "github.com/kubeschema/kubeschema/internal/api/v0"
	"github.com/kubeschema/kubeschema/internal/identity"
	"github.com/kubeschema/kubeschema/internal/resolver"
	"github.com/kubeschema/kubeschema/internal/service"
	"github.com/kubeschema/kubeschema/internal/service/mocks"
)

const deploymentManifest = "apiVersion: apps/v1\nkind: Deployment\nmetadata:\n  name: web\n"

func newIdentity(group, version, kind string) identity.ResourceIdentity {
	return identity.ResourceIdentity{
		GroupVersionKind: schema.GroupVersionKind{Group: group, Version: version, Kind: kind},
	}
}

func TestHealthRouter(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockSvc := mocks.NewMockSchemaService(ctrl)
	// Set up expectations for readiness check
	mockSvc.EXPECT().CheckReadiness(gomock.Any()).Return(nil).AnyTimes()

	router := v0.HealthRouter(mockSvc)

	tests := []struct {
		name       string
		path       string
		method     string
		wantStatus int
	}{
		{
			name:       "health endpoint",
			path:       "/health",
			method:     "GET",
			wantStatus: http.StatusOK,
		},
		{
			name:       "readiness endpoint - ready",
			path:       "/readiness",
			method:     "GET",
			wantStatus: http.StatusOK,
		},
		{
			name:       "version endpoint",
			path:       "/version",
			method:     "GET",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, err := http.NewRequest(tt.method, tt.path, nil)
			require.NoError(t, err)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestResolveEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockSvc := mocks.NewMockSchemaService(ctrl)
	mockSvc.EXPECT().ResolveDocument(gomock.Any(), deploymentManifest).Return([]service.Resolution{
		{
			Identity: newIdentity("apps", "v1", "Deployment"),
			Result: &resolver.Result{
				URL:        "https://example.com/deployment-v1.json",
				SourceName: "kubernetes",
			},
		},
	}, nil)

	router := v0.Router(mockSvc)

	req, err := http.NewRequest("POST", "/resolve", strings.NewReader(deploymentManifest))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response v0.ResolveResponse
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	require.Len(t, response.Resolutions, 1)
	assert.Equal(t, "apps/v1", response.Resolutions[0].APIVersion)
	assert.Equal(t, "Deployment", response.Resolutions[0].Kind)
	assert.True(t, response.Resolutions[0].Matched)
	assert.Equal(t, "https://example.com/deployment-v1.json", response.Resolutions[0].URL)
	assert.Equal(t, "kubernetes", response.Resolutions[0].Source)
}

func TestResolveEndpointNoMatch(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockSvc := mocks.NewMockSchemaService(ctrl)
	mockSvc.EXPECT().ResolveDocument(gomock.Any(), gomock.Any()).Return([]service.Resolution{
		{Identity: newIdentity("example.com", "v1", "Widget")},
	}, nil)

	router := v0.Router(mockSvc)

	body := "apiVersion: example.com/v1\nkind: Widget\n"
	req, err := http.NewRequest("POST", "/resolve", strings.NewReader(body))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var response v0.ResolveResponse
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	require.Len(t, response.Resolutions, 1)
	assert.False(t, response.Resolutions[0].Matched)
	assert.Empty(t, response.Resolutions[0].URL)
	assert.Empty(t, response.Resolutions[0].Source)
}

func TestResolveEndpointEmptyBody(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockSvc := mocks.NewMockSchemaService(ctrl)
	router := v0.Router(mockSvc)

	req, err := http.NewRequest("POST", "/resolve", strings.NewReader(""))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var response v0.ErrorResponse
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Contains(t, response.Error, "empty")
}

func TestResolveEndpointServiceError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockSvc := mocks.NewMockSchemaService(ctrl)
	mockSvc.EXPECT().ResolveDocument(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("sink unavailable"))

	router := v0.Router(mockSvc)

	req, err := http.NewRequest("POST", "/resolve", strings.NewReader(deploymentManifest))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestReloadEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		reloadErr  error
		wantStatus int
	}{
		{
			name:       "reload succeeds",
			reloadErr:  nil,
			wantStatus: http.StatusOK,
		},
		{
			name:       "reload fails",
			reloadErr:  fmt.Errorf("bad config"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			mockSvc := mocks.NewMockSchemaService(ctrl)
			mockSvc.EXPECT().Reload(gomock.Any()).Return(tt.reloadErr)

			router := v0.Router(mockSvc)

			req, err := http.NewRequest("POST", "/reload", nil)
			require.NoError(t, err)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestReadinessEndpointNotReady(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockSvc := mocks.NewMockSchemaService(ctrl)
	mockSvc.EXPECT().CheckReadiness(gomock.Any()).Return(fmt.Errorf("resolver not configured"))

	router := v0.HealthRouter(mockSvc)

	req, err := http.NewRequest("GET", "/readiness", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var response v0.ErrorResponse
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Contains(t, response.Error, "not ready")
}
