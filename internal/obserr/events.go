package obserr

import (
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Events emits the named events of spec §6 as structured log lines. The
// zero value is not usable; construct with NewEvents. Passing zap.NewNop()
// gives callers who don't care about observability a free no-op logger,
// exactly as if Driver had no logging dependency at all.
type Events struct {
	log *zap.Logger
}

// NewEvents wraps a *zap.Logger for event emission. A nil logger is
// replaced with a no-op logger.
func NewEvents(log *zap.Logger) *Events {
	if log == nil {
		log = zap.NewNop()
	}
	return &Events{log: log}
}

func (e *Events) InsertStart(count int) {
	e.log.Info("insert.start", zap.Int("count", count))
}

func (e *Events) InsertStop(count int, dur time.Duration, err error) {
	fields := []zap.Field{zap.Int("count", count), zap.Duration("duration", dur)}
	if err != nil {
		e.log.Error("insert.stop", append(fields, zap.Error(err))...)
		return
	}
	e.log.Info("insert.stop", fields...)
}

func (e *Events) MaterializeStart(ruleCount int) {
	e.log.Info("materialize.start", zap.Int("rules", ruleCount))
}

func (e *Events) MaterializeIteration(round int, derivations int) {
	e.log.Info("materialize.iteration", zap.Int("round", round), zap.Int("derivations", derivations))
}

func (e *Events) MaterializeStop(iterations int, totalDerived int, dur time.Duration, err error) {
	fields := []zap.Field{
		zap.Int("iterations", iterations),
		zap.Int("total_derived", totalDerived),
		zap.Duration("duration", dur),
	}
	if err != nil {
		e.log.Warn("materialize.stop", append(fields, zap.Error(err))...)
		return
	}
	e.log.Info("materialize.stop", fields...)
}

// ShortIRI abbreviates an IRI for log fields so structured log lines don't
// dump full namespace URIs: it keeps the local name (the part after the
// last '/' or '#') and prefixes it with an ellipsis when truncated.
//
// Adapted from the teacher's rdf.PrefixMap.split/Shrink (Turtle prefix
// compaction is out of scope here, but the same "find the last path or
// fragment separator" logic is exactly what log ergonomics need).
func ShortIRI(iri string) string {
	ns, local := splitIRI(iri)
	if ns == "" {
		return iri
	}
	return "…" + local
}

func splitIRI(iri string) (ns, local string) {
	i := len(iri)
	for i > 0 {
		r, w := utf8.DecodeLastRuneInString(iri[:i])
		if r == '/' || r == '#' {
			return iri[:i], iri[i:]
		}
		i -= w
	}
	return "", iri
}

// ZapIRI builds a zap.Field carrying a shortened IRI, for use in hot log
// lines (DeltaEngine round events) where a full namespace URI would be
// noise.
func ZapIRI(key, iri string) zap.Field {
	return zap.String(key, ShortIRI(iri))
}
