package routing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daisydate/go-date-course-planner/app/observability/metrics"
	"github.com/daisydate/go-date-course-planner/internal/types"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var (
	testOrigin      = types.LatLng{Lat: 37.5601, Lng: 126.9250}
	testDestination = types.LatLng{Lat: 37.5563, Lng: 126.9236}
)

func TestTMapProvider_Route(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "test-app-key", r.Header.Get("appKey"))

			var req tmapRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			// X is longitude, Y is latitude.
			assert.Equal(t, testOrigin.Lng, req.StartX)
			assert.Equal(t, testOrigin.Lat, req.StartY)
			assert.Equal(t, "WGS84GEO", req.ReqCoordType)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"features": [
					{"geometry": {"type": "Point", "coordinates": [126.9250, 37.5601]},
					 "properties": {"totalDistance": 850, "totalTime": 612}},
					{"geometry": {"type": "LineString", "coordinates": [[126.9250, 37.5601], [126.9240, 37.5580]]},
					 "properties": {}},
					{"geometry": {"type": "LineString", "coordinates": [[126.9240, 37.5580], [126.9236, 37.5563]]},
					 "properties": {}}
				]
			}`))
		}))
		defer server.Close()

		provider := NewTMapProvider("test-app-key", 5*time.Second, testLogger()).WithEndpoint(server.URL)
		info, err := provider.Route(context.Background(), testOrigin, testDestination)

		require.NoError(t, err)
		assert.Equal(t, 850.0, info.DistanceMeters)
		assert.Equal(t, 612, info.DurationSeconds)
		require.Len(t, info.Path, 4)
		assert.Equal(t, types.LatLng{Lat: 37.5601, Lng: 126.9250}, info.Path[0])
		assert.Equal(t, types.LatLng{Lat: 37.5563, Lng: 126.9236}, info.Path[3])
	})

	t.Run("no features", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"features": []}`))
		}))
		defer server.Close()

		provider := NewTMapProvider("test-app-key", 5*time.Second, testLogger()).WithEndpoint(server.URL)
		_, err := provider.Route(context.Background(), testOrigin, testDestination)

		assert.ErrorIs(t, err, ErrRouteNotFound)
	})

	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		provider := NewTMapProvider("test-app-key", 5*time.Second, testLogger()).WithEndpoint(server.URL)
		_, err := provider.Route(context.Background(), testOrigin, testDestination)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("missing credentials", func(t *testing.T) {
		provider := NewTMapProvider("", 5*time.Second, testLogger())
		_, err := provider.Route(context.Background(), testOrigin, testDestination)

		assert.ErrorIs(t, err, ErrMissingCredentials)
	})
}

func TestKakaoProvider_Route(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "KakaoAK test-rest-key", r.Header.Get("Authorization"))
			// origin is "longitude,latitude".
			assert.Equal(t, "126.925000,37.560100", r.URL.Query().Get("origin"))
			assert.Equal(t, "RECOMMEND", r.URL.Query().Get("priority"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"routes": [{
					"summary": {"distance": 1340, "duration": 420},
					"sections": [{
						"roads": [
							{"vertexes": [126.9250, 37.5601, 126.9245, 37.5590]},
							{"vertexes": [126.9236, 37.5563]}
						]
					}]
				}]
			}`))
		}))
		defer server.Close()

		provider := NewKakaoProvider("test-rest-key", 5*time.Second, testLogger()).WithEndpoint(server.URL)
		info, err := provider.Route(context.Background(), testOrigin, testDestination)

		require.NoError(t, err)
		assert.Equal(t, 1340.0, info.DistanceMeters)
		assert.Equal(t, 420, info.DurationSeconds)
		require.Len(t, info.Path, 3)
		assert.Equal(t, types.LatLng{Lat: 37.5601, Lng: 126.9250}, info.Path[0])
	})

	t.Run("no routes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"routes": []}`))
		}))
		defer server.Close()

		provider := NewKakaoProvider("test-rest-key", 5*time.Second, testLogger()).WithEndpoint(server.URL)
		_, err := provider.Route(context.Background(), testOrigin, testDestination)

		assert.ErrorIs(t, err, ErrRouteNotFound)
	})

	t.Run("missing credentials", func(t *testing.T) {
		provider := NewKakaoProvider("", 5*time.Second, testLogger())
		_, err := provider.Route(context.Background(), testOrigin, testDestination)

		assert.ErrorIs(t, err, ErrMissingCredentials)
	})
}

func TestGoogleRoutesProvider_Route(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "test-api-key", r.Header.Get("X-Goog-Api-Key"))
			assert.NotEmpty(t, r.Header.Get("X-Goog-FieldMask"))

			var req googleRoutesRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "WALK", req.TravelMode)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"routes": [{
					"distanceMeters": 2230,
					"duration": "1620s",
					"polyline": {"encodedPolyline": "_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"}
				}]
			}`))
		}))
		defer server.Close()

		provider := NewGoogleRoutesProvider("test-api-key", 5*time.Second, testLogger()).WithEndpoint(server.URL)
		info, err := provider.Route(context.Background(), testOrigin, testDestination)

		require.NoError(t, err)
		assert.Equal(t, 2230.0, info.DistanceMeters)
		assert.Equal(t, 1620, info.DurationSeconds)
		require.Len(t, info.Path, 3)
		assert.InDelta(t, 38.5, info.Path[0].Lat, 1e-9)
		assert.InDelta(t, -120.2, info.Path[0].Lng, 1e-9)
	})

	t.Run("no routes", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"routes": []}`))
		}))
		defer server.Close()

		provider := NewGoogleRoutesProvider("test-api-key", 5*time.Second, testLogger()).WithEndpoint(server.URL)
		_, err := provider.Route(context.Background(), testOrigin, testDestination)

		assert.ErrorIs(t, err, ErrRouteNotFound)
	})
}

func TestDecodePolyline(t *testing.T) {
	// Reference vector from the polyline algorithm documentation.
	path := decodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")

	require.Len(t, path, 3)
	assert.InDelta(t, 38.5, path[0].Lat, 1e-9)
	assert.InDelta(t, -120.2, path[0].Lng, 1e-9)
	assert.InDelta(t, 40.7, path[1].Lat, 1e-9)
	assert.InDelta(t, -120.95, path[1].Lng, 1e-9)
	assert.InDelta(t, 43.252, path[2].Lat, 1e-9)
	assert.InDelta(t, -126.453, path[2].Lng, 1e-9)
}

func TestParseDurationSeconds(t *testing.T) {
	assert.Equal(t, 123, parseDurationSeconds("123s"))
	assert.Equal(t, 0, parseDurationSeconds("garbage"))
	assert.Equal(t, 1620, parseDurationSeconds("1620.5s"))
}

type stubProvider struct {
	name string
	info *types.RouteInfo
	err  error
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Route(ctx context.Context, origin, destination types.LatLng) (*types.RouteInfo, error) {
	return s.info, s.err
}

func TestChain_Route(t *testing.T) {
	t.Run("first provider wins", func(t *testing.T) {
		want := &types.RouteInfo{DistanceMeters: 100}
		chain := NewChain(testLogger(),
			&stubProvider{name: "primary", info: want},
			&stubProvider{name: "secondary", err: errors.New("should not be called")},
		)

		info, err := chain.Route(context.Background(), testOrigin, testDestination)
		require.NoError(t, err)
		assert.Equal(t, want, info)
	})

	t.Run("falls through to next provider", func(t *testing.T) {
		want := &types.RouteInfo{DistanceMeters: 200}
		chain := NewChain(testLogger(),
			&stubProvider{name: "primary", err: ErrMissingCredentials},
			&stubProvider{name: "secondary", info: want},
		)

		info, err := chain.Route(context.Background(), testOrigin, testDestination)
		require.NoError(t, err)
		assert.Equal(t, want, info)
	})

	t.Run("all providers exhausted", func(t *testing.T) {
		chain := NewChain(testLogger(),
			&stubProvider{name: "primary", err: errors.New("timeout")},
			&stubProvider{name: "secondary", err: ErrRouteNotFound},
		)

		_, err := chain.Route(context.Background(), testOrigin, testDestination)
		assert.ErrorIs(t, err, ErrRouteNotFound)
	})
}
