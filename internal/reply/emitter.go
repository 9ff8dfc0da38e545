package reply

import (
	"ircserv/internal/metrics"
	"ircserv/internal/session"
)

// Emitter writes replies to a session's output.  A failed write is logged
// and counted but never returned: the connection is reaped later by the
// read path, not torn down here.
type Emitter struct {
	Metrics *metrics.Collector
}

// Emit formats r, appends CR LF and performs one write to s.Out.  It
// reports whether the whole reply was written.
func (e *Emitter) Emit(s *session.Session, r *Reply) bool {
	if r == nil || s.Out == nil {
		return false
	}
	line := r.String()
	n, err := s.Out.Write([]byte(line + "\r\n"))
	e.Metrics.BytesSent(n)
	if err != nil {
		e.Metrics.RecordError("write")
		s.Logger.Warn("sending reply %s: %v", r.Code, err)
		return false
	}
	e.Metrics.ReplySent(r.Code)
	s.Logger.Debug("S: %s", line)
	return true
}
