// Package loopdetect keeps short-term memory of emitted response
// signatures per call and flags repetition. This is the only long-lived
// shared state inside the runtime, so it is explicitly time-boxed and
// safe for concurrent use across calls.
package loopdetect

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	// maxSignatures bounds the per-call ring buffer.
	maxSignatures = 5

	// signatureLen keeps signatures comparable and cheap.
	signatureLen = 100
)

var (
	phoneRe  = regexp.MustCompile(`\+?\d[\d\-\s().]{6,}\d`)
	timeRe   = regexp.MustCompile(`\b\d{1,2}(:\d{2})?\s?(am|pm)\b`)
	dateRe   = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|today|tonight)\b`)
	numberRe = regexp.MustCompile(`\b\d+\b`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Signature normalizes a response so that two turns differing only in
// inserted specifics (a name, a phone number, a time) still compare
// equal. Without this, "I'll book you for 2pm" vs "I'll book you for
// 3pm" would hide a loop.
func Signature(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = phoneRe.ReplaceAllString(s, "{phone}")
	s = timeRe.ReplaceAllString(s, "{time}")
	s = dateRe.ReplaceAllString(s, "{date}")
	s = numberRe.ReplaceAllString(s, "{num}")
	s = spaceRe.ReplaceAllString(s, " ")
	if len(s) > signatureLen {
		s = s[:signatureLen]
	}
	return s
}

type entry struct {
	sig string
	at  time.Time
}

type callHistory struct {
	entries  []entry
	lastSeen time.Time
}

// Result reports the repetition streak counting back from the most
// recent signature.
type Result struct {
	ConsecutiveMatches int
	IsLooping          bool
}

// Detector is an injected, TTL-bound store of per-call signatures.
type Detector struct {
	mu    sync.Mutex
	calls map[string]*callHistory

	ttl   time.Duration
	clock func() time.Time
}

func NewDetector(ttl time.Duration) *Detector {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Detector{
		calls: make(map[string]*callHistory),
		ttl:   ttl,
		clock: time.Now,
	}
}

// WithClock overrides time for tests.
func (d *Detector) WithClock(clock func() time.Time) *Detector {
	d.clock = clock
	return d
}

// Record stores the signature of an emitted response.
func (d *Detector) Record(callID, text string) {
	if callID == "" || strings.TrimSpace(text) == "" {
		return
	}
	now := d.clock()
	sig := Signature(text)

	d.mu.Lock()
	defer d.mu.Unlock()

	h := d.calls[callID]
	if h == nil {
		h = &callHistory{}
		d.calls[callID] = h
	}
	h.lastSeen = now
	h.entries = append(h.entries, entry{sig: sig, at: now})
	if len(h.entries) > maxSignatures {
		h.entries = h.entries[len(h.entries)-maxSignatures:]
	}
}

// Check reports the streak of recent signatures equal to pendingText's
// signature. With empty pendingText, the newest stored signature is the
// reference instead. IsLooping at two or more matches.
func (d *Detector) Check(callID, pendingText string) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := d.calls[callID]
	if h == nil || len(h.entries) == 0 {
		return Result{}
	}

	// Drop anything past TTL before counting.
	fresh := h.entries[:0]
	cutoff := d.clock().Add(-d.ttl)
	for _, e := range h.entries {
		if e.at.After(cutoff) {
			fresh = append(fresh, e)
		}
	}
	h.entries = fresh
	if len(h.entries) == 0 {
		return Result{}
	}

	var ref string
	count := 0
	if strings.TrimSpace(pendingText) != "" {
		ref = Signature(pendingText)
	} else {
		ref = h.entries[len(h.entries)-1].sig
	}
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].sig != ref {
			break
		}
		count++
	}
	return Result{ConsecutiveMatches: count, IsLooping: count >= 2}
}

// Forget drops a call's history (call ended).
func (d *Detector) Forget(callID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.calls, callID)
}

// StartSweeper evicts calls idle past the TTL until ctx is done.
func (d *Detector) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				d.sweep()
			}
		}
	}()
}

func (d *Detector) sweep() {
	cutoff := d.clock().Add(-d.ttl)
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, h := range d.calls {
		if h.lastSeen.Before(cutoff) {
			delete(d.calls, id)
		}
	}
}

// Size reports tracked call count, for metrics.
func (d *Detector) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}
