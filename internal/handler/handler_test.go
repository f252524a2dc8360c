package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/szervas/fusebox/internal/circuitbreaker"
	"github.com/szervas/fusebox/internal/handler"
)

var _ = Describe("Diagnostics", func() {
	var (
		registry    *circuitbreaker.Registry
		diagnostics *handler.Diagnostics
		ctx         context.Context
	)

	failingOp := func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	}

	BeforeEach(func() {
		ctx = context.Background()
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		registry = circuitbreaker.NewRegistry(log, circuitbreaker.DefaultProfiles())
		Expect(registry.Initialize()).To(Succeed())

		diagnostics = handler.NewDiagnostics(log, registry)
	})

	tripBreaker := func(name string, failures int) {
		_, err := registry.Register(circuitbreaker.Config{
			Name:             name,
			FailureThreshold: failures,
			ResetTimeout:     time.Minute,
		})
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < failures; i++ {
			registry.Execute(ctx, name, failingOp)
		}
	}

	Describe("Health", func() {
		It("should return 200 with per-breaker health when all are closed", func() {
			rec := httptest.NewRecorder()
			diagnostics.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var health circuitbreaker.Health
			Expect(json.NewDecoder(rec.Body).Decode(&health)).To(Succeed())
			Expect(health.Status).To(Equal(circuitbreaker.HealthHealthy))
			Expect(health.Breakers).To(HaveKey(circuitbreaker.ProfileDatabase))
		})

		It("should return 503 when a breaker is open", func() {
			tripBreaker("lyrics-api", 1)

			rec := httptest.NewRecorder()
			diagnostics.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

			var health circuitbreaker.Health
			Expect(json.NewDecoder(rec.Body).Decode(&health)).To(Succeed())
			Expect(health.Status).To(Equal(circuitbreaker.HealthUnhealthy))
		})
	})

	Describe("Breakers", func() {
		It("should return counter snapshots per breaker", func() {
			tripBreaker("lyrics-api", 2)

			rec := httptest.NewRecorder()
			diagnostics.Breakers(rec, httptest.NewRequest(http.MethodGet, "/breakers", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))

			var snapshot map[string]circuitbreaker.Counters
			Expect(json.NewDecoder(rec.Body).Decode(&snapshot)).To(Succeed())
			Expect(snapshot["lyrics-api"].Calls).To(Equal(int64(2)))
			Expect(snapshot["lyrics-api"].Failures).To(Equal(int64(2)))
		})
	})

	Describe("Summary", func() {
		It("should return state counts that add up", func() {
			tripBreaker("lyrics-api", 1)

			rec := httptest.NewRecorder()
			diagnostics.Summary(rec, httptest.NewRequest(http.MethodGet, "/breakers/summary", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))

			var summary circuitbreaker.Summary
			Expect(json.NewDecoder(rec.Body).Decode(&summary)).To(Succeed())
			Expect(summary.Open).To(Equal(1))
			Expect(summary.Closed + summary.Open + summary.HalfOpen).To(Equal(summary.Total))
		})
	})

	Describe("Reset", func() {
		It("should reject non-POST requests", func() {
			rec := httptest.NewRecorder()
			diagnostics.Reset(rec, httptest.NewRequest(http.MethodGet, "/breakers/reset", nil))

			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
		})

		It("should close every breaker and return the new summary", func() {
			tripBreaker("lyrics-api", 1)

			rec := httptest.NewRecorder()
			diagnostics.Reset(rec, httptest.NewRequest(http.MethodPost, "/breakers/reset", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))

			var summary circuitbreaker.Summary
			Expect(json.NewDecoder(rec.Body).Decode(&summary)).To(Succeed())
			Expect(summary.Closed).To(Equal(summary.Total))
			Expect(summary.Open).To(BeZero())
		})
	})
})
