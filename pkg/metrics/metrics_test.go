package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "atscheck")
				So(manager.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test-namespace")
				So(manager.subsystem, ShouldEqual, "test-subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.customLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "atscheck")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		Convey("When submissions settle", func() {
			m.RecordSubmission(OutcomeSuccess, 120)
			m.RecordSubmission(OutcomeSuccess, 80)
			m.RecordSubmission(OutcomeHTTP, 40)
			m.RecordSubmission(OutcomeInput, 0)

			Convey("Then they should be counted by outcome", func() {
				So(testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeSuccess)), ShouldEqual, 2)
				So(testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeHTTP)), ShouldEqual, 1)
				So(testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeInput)), ShouldEqual, 1)
			})
		})

		Convey("When a submission goes in and out of flight", func() {
			m.SubmissionStarted()
			So(testutil.ToFloat64(m.submissionsInFlight), ShouldEqual, 1)
			m.SubmissionFinished()
			So(testutil.ToFloat64(m.submissionsInFlight), ShouldEqual, 0)
		})

		Convey("When tokens are replayed and requests served", func() {
			m.RecordTokenReplay()
			m.RecordHTTPRequest("analyze", "POST", "200", 12)
			m.RecordUploadBytes(2048)

			So(testutil.ToFloat64(m.tokenReplays), ShouldEqual, 1)
			So(testutil.ToFloat64(m.httpRequests.WithLabelValues("analyze", "POST", "200")), ShouldEqual, 1)
		})
	})

	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
		m.RecordSubmission(OutcomeSuccess, 10)
		m.SubmissionStarted()

		Convey("Then nothing should be recorded", func() {
			So(testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeSuccess)), ShouldEqual, 0)
			So(testutil.ToFloat64(m.submissionsInFlight), ShouldEqual, 0)
		})
	})

	Convey("Given the global helpers", t, func() {
		So(func() {
			RecordSubmission(OutcomeUnexpected, 5)
			SubmissionStarted()
			SubmissionFinished()
			RecordUploadBytes(10)
			RecordTokenReplay()
			RecordHTTPRequest("healthz", "GET", "200", 1)
		}, ShouldNotPanic)
		So(GetRegistry(), ShouldNotBeNil)
	})
}

func TestRegisterRuntimeCollectors(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		Convey("When runtime collectors are registered twice", func() {
			So(func() {
				RegisterRuntimeCollectors()
				RegisterRuntimeCollectors()
			}, ShouldNotPanic)

			Convey("Then Go runtime metrics should be gathered", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "go_goroutines" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}
