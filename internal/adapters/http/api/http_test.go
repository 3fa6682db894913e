package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/longcourse/agegrade/internal/adapters/http/api"
	"github.com/longcourse/agegrade/internal/app"
	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/internal/domain/results"
	. "github.com/smartystreets/goconvey/convey"
)

// mockService backs the Dependencies and StatsProvider contracts with canned
// responses.
type mockService struct {
	races    []model.Race
	response *app.ResultsResponse
	summary  results.SlotSummary
	err      error
}

func (m *mockService) Races(ctx context.Context) []model.Race {
	return m.races
}

func (m *mockService) Results(ctx context.Context, raceKey, gender string) (*app.ResultsResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockService) SlotSummary(ctx context.Context, raceKey string) (results.SlotSummary, error) {
	if m.err != nil {
		return results.SlotSummary{}, m.err
	}
	return m.summary, nil
}

func (m *mockService) GetStats() map[string]interface{} {
	return map[string]interface{}{"races": len(m.races)}
}

func newTestMux(svc *mockService) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRacesEndpoint(t *testing.T) {
	Convey("Given the API with two races", t, func() {
		svc := &mockService{races: []model.Race{
			{Key: "full-2026", Name: "Autumn Full", Date: "2026-10-04", Distance: "140.6"},
			{Key: "half-2026", Name: "Spring Half", Date: "2026-04-12", Distance: "70.3"},
		}}
		mux := newTestMux(svc)

		Convey("When listing races", func() {
			rec := doRequest(mux, http.MethodGet, "/api/races")

			Convey("Then the catalog is returned as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")

				var got []model.Race
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].Key, ShouldEqual, "full-2026")
			})
		})

		Convey("When the method is not GET", func() {
			rec := doRequest(mux, http.MethodPost, "/api/races")
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestResultsEndpoint(t *testing.T) {
	Convey("Given the API over a mock pipeline", t, func() {
		Convey("When the pipeline succeeds", func() {
			svc := &mockService{response: &app.ResultsResponse{
				RaceKey:            "half-2026",
				Gender:             "women",
				Policy:             "split-fixed",
				AdjustmentsVersion: "half-2025",
				Results: []model.ResultEntry{
					{Bib: "1", AgeGroup: "F30-34", GradedPlace: 1, AGPlace: 1, AGWinner: true},
				},
			}}
			rec := doRequest(newTestMux(svc), http.MethodGet, "/api/results/half-2026?gender=women")

			Convey("Then the annotated results come back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var got app.ResultsResponse
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.RaceKey, ShouldEqual, "half-2026")
				So(got.Results, ShouldHaveLength, 1)
				So(got.Results[0].AGWinner, ShouldBeTrue)
			})
		})

		Convey("When the race key segment is empty", func() {
			rec := doRequest(newTestMux(&mockService{}), http.MethodGet, "/api/results/")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the race is unknown", func() {
			rec := doRequest(newTestMux(&mockService{err: results.ErrUnknownRace}), http.MethodGet, "/api/results/nope")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the gender parameter is required but missing", func() {
			rec := doRequest(newTestMux(&mockService{err: results.ErrGenderRequired}), http.MethodGet, "/api/results/half-2026")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)

			var body map[string]string
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
			So(body["code"], ShouldEqual, "gender_required")
		})

		Convey("When nobody has finished yet", func() {
			rec := doRequest(newTestMux(&mockService{err: results.ErrNoFinishers}), http.MethodGet, "/api/results/half-2026?gender=men")

			Convey("Then a waiting payload is served with 200", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var body map[string]string
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["status"], ShouldEqual, "waiting")
				So(body["reason"], ShouldEqual, "no_finishers")
			})
		})

		Convey("When the live feed has no usable entries", func() {
			rec := doRequest(newTestMux(&mockService{err: results.ErrNoLiveData}), http.MethodGet, "/api/results/half-2026?gender=men")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var body map[string]string
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
			So(body["reason"], ShouldEqual, "no_live_data")
		})

		Convey("When the upstream fails", func() {
			rec := doRequest(newTestMux(&mockService{err: results.ErrUpstreamTransport}), http.MethodGet, "/api/results/half-2026?gender=men")
			So(rec.Code, ShouldEqual, http.StatusBadGateway)
		})

		Convey("When the adjustments manifest has no match", func() {
			rec := doRequest(newTestMux(&mockService{err: results.ErrNoAdjustments}), http.MethodGet, "/api/results/half-2026?gender=men")
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestSlotsEndpoint(t *testing.T) {
	Convey("Given the API over a mock pipeline", t, func() {
		Convey("When the summary resolves", func() {
			svc := &mockService{summary: results.SlotSummary{
				Policy:      "split-dynamic",
				TotalSlots:  25,
				WinnerSlots: 14,
				PoolSlots:   11,
				Genders: map[string]results.GenderSummary{
					"men":   {TotalSlots: 15, WinnerSlots: 8, PoolSlots: 7},
					"women": {TotalSlots: 10, WinnerSlots: 6, PoolSlots: 4},
				},
			}}
			rec := doRequest(newTestMux(svc), http.MethodGet, "/api/slots/full-2026")

			Convey("Then the summary is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var got results.SlotSummary
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.Policy, ShouldEqual, "split-dynamic")
				So(got.Genders["men"].PoolSlots, ShouldEqual, 7)
			})
		})

		Convey("When the race is unknown", func() {
			rec := doRequest(newTestMux(&mockService{err: results.ErrUnknownRace}), http.MethodGet, "/api/slots/nope")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the race key segment is empty", func() {
			rec := doRequest(newTestMux(&mockService{}), http.MethodGet, "/api/slots/")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the API", t, func() {
		svc := &mockService{races: []model.Race{{Key: "r"}}}
		mux := newTestMux(svc)

		Convey("When probing /healthz", func() {
			rec := doRequest(mux, http.MethodGet, "/healthz")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var body map[string]string
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("When fetching /stats", func() {
			rec := doRequest(mux, http.MethodGet, "/stats")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var body map[string]interface{}
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
			So(body["races"], ShouldEqual, 1.0)
		})

		Convey("When scraping the metrics handler", func() {
			rec := httptest.NewRecorder()
			api.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}
