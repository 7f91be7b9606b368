package services

import "github.com/prometheus/client_golang/prometheus"

var (
	versesDispensed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verse_dispensed_total",
		Help: "Verses handed out to eligible sessions.",
	})

	versesDenied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verse_denied_total",
		Help: "Dispense attempts refused because the session is cooling down.",
	})

	prayersLogged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "prayer_requests_logged_total",
		Help: "Prayer requests appended to the request log.",
	})

	// csvExports is labelled by result: "ok" or "error".
	csvExports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csv_exports_total",
		Help: "CSV exports of the request log by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(versesDispensed, versesDenied, prayersLogged, csvExports)
}
