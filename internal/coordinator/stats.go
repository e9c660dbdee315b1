package coordinator

// Stats accumulates the counters a ring session reports at the end of
// a run. Sent and Discarded are only written by the sender goroutine
// and the receive worker respectively while the session is live; Acked
// is only written by the receive worker. Report is only safe to call
// after both goroutines have joined.
type Stats struct {
	Sent      int
	Acked     int
	Discarded int
}

// Report is the final, derived view spec.md §4.D's statistics section
// describes: loss computed as sent-minus-acked after the discard
// correction is applied, clamped so a session that ends before any
// send completes never reports negative loss.
type Report struct {
	Sent    int
	Acked   int
	LossPct int
}

// Report applies the discard correction (sent -= discarded) and
// derives loss = sent - acked, clamped at zero, matching
// original_source/src/ring_impl.rs's run() tail:
//
//	stats.packet_sent -= discard
//	stats.loss = stats.packet_sent - stats.successful
func (s Stats) Report() Report {
	sent := s.Sent - s.Discarded
	if sent < 0 {
		sent = 0
	}
	loss := sent - s.Acked
	if loss < 0 {
		loss = 0
	}
	pct := 0
	if sent > 0 {
		pct = loss * 100 / sent
	}
	return Report{Sent: sent, Acked: s.Acked, LossPct: pct}
}
