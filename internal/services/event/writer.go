package event

import (
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/community_health_monitor/internal/logger"
)

// PointWriter is the part of the Influx non-blocking write API the Writer
// needs. api.WriteAPI satisfies it.
type PointWriter interface {
	WritePoint(p *write.Point)
	Errors() <-chan error
	Flush()
}

// Writer incapsula WriteAPI e traccia l'ultimo errore di scrittura per /healthz e /readyz.
type Writer struct {
	api     PointWriter
	log     zerolog.Logger
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

// NewWriter inizializza il writer e attiva il listener degli errori asincroni di Influx.
func NewWriter(w PointWriter) *Writer {
	ww := &Writer{
		api:     w,
		log:     logger.WithComponent("influx"),
		lastErr: time.Now().Add(-24 * time.Hour), // di default "lontano nel tempo"
		counts:  make(map[string]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.markError()
				ww.log.Error().Err(err).Msg("influx write error")
			}
		}
	}()
	return ww
}

// Write queues the point and counts it under kind.
func (w *Writer) Write(kind string, p *write.Point) {
	w.api.WritePoint(p)
	w.MarkIngest(kind)
}

func (w *Writer) Flush() {
	if w == nil {
		return
	}
	w.api.Flush()
}

func (w *Writer) markError() {
	w.mu.Lock()
	w.lastErr = time.Now()
	w.mu.Unlock()
}

// LastErrorAge ritorna da quanto tempo non si verificano errori di scrittura.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		// se per qualche motivo non è stato inizializzato, ritorna un'età grande
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

// MarkIngest incrementa un contatore interno per tipo di punto.
func (w *Writer) MarkIngest(kind string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	w.counts[kind]++
	w.mu.Unlock()
}

func (w *Writer) Count(kind string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	c := w.counts[kind]
	w.mu.RUnlock()
	return c
}
