package logger

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
)

const (
	shipBuffer = 1000
	shipBatch  = 200
)

// sensitiveKeys are blanked before an event leaves the process.
var sensitiveKeys = []string{"authorization", "token", "secret", "private_key", "password"}

// axiomShipper is a zerolog.LevelWriter that batches info+ lines to an
// Axiom dataset. When the buffer is full new lines are dropped.
type axiomShipper struct {
	client  *axiom.Client
	dataset string
	events  chan axiom.Event
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func newAxiomShipper(token, orgID, dataset string, flushEvery time.Duration) (*axiomShipper, error) {
	if dataset == "" {
		dataset = "dev_imageai"
	}
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	s := &axiomShipper{
		client:  c,
		dataset: dataset,
		events:  make(chan axiom.Event, shipBuffer),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(flushEvery)
	return s, nil
}

func (s *axiomShipper) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.InfoLevel, p)
}

func (s *axiomShipper) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.InfoLevel {
		return len(p), nil
	}
	ev, ok := toEvent(p)
	if !ok {
		return len(p), nil
	}
	select {
	case s.events <- ev:
	default:
	}
	return len(p), nil
}

func toEvent(p []byte) (axiom.Event, bool) {
	var ev map[string]any
	if err := json.Unmarshal(p, &ev); err != nil {
		return nil, false
	}
	for k := range ev {
		lk := strings.ToLower(k)
		for _, sk := range sensitiveKeys {
			if strings.Contains(lk, sk) {
				ev[k] = "[redacted]"
				break
			}
		}
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		if ts, ok := ev[zerolog.TimestampFieldName]; ok {
			ev[ingest.TimestampField] = ts
		} else {
			ev[ingest.TimestampField] = time.Now()
		}
	}
	return axiom.Event(ev), true
}

func (s *axiomShipper) run(flushEvery time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]axiom.Event, 0, shipBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		_, _ = s.client.IngestEvents(ctx, s.dataset, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-s.events:
			batch = append(batch, ev)
			if len(batch) >= shipBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.done:
			for {
				select {
				case ev := <-s.events:
					batch = append(batch, ev)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close drains buffered events and waits for the final flush.
func (s *axiomShipper) Close() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}
