package harness

import (
	"context"
	"sync"

	"github.com/roach88/notiondb/internal/ir"
	"github.com/roach88/notiondb/internal/native"
	"github.com/roach88/notiondb/internal/remote"
)

// Recorder is a remote.Store that forwards to another store and traces
// every call while recording is on.
type Recorder struct {
	store remote.Store

	mu        sync.Mutex
	recording bool
	step      int
	seq       int64
	trace     []TraceEvent
}

// NewRecorder wraps store. Recording starts off.
func NewRecorder(store remote.Store) *Recorder {
	return &Recorder{store: store, trace: []TraceEvent{}}
}

// Record turns tracing on and tags subsequent calls with step.
func (r *Recorder) Record(step int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = true
	r.step = step
}

// Pause turns tracing off.
func (r *Recorder) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
}

// Trace returns a copy of the calls recorded so far.
func (r *Recorder) Trace() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.trace))
	copy(out, r.trace)
	return out
}

// FetchSchema implements remote.Store.
func (r *Recorder) FetchSchema(ctx context.Context, tableRef string) (*remote.TableSchema, error) {
	schema, err := r.store.FetchSchema(ctx, tableRef)
	ev := TraceEvent{Op: OpFetchSchema, Ref: tableRef}
	if err == nil {
		ev.Result = ir.IRObject{"columns": stringsIR(schema.Columns())}
	}
	r.add(ev, err)
	return schema, err
}

// CreateRecord implements remote.Store.
func (r *Recorder) CreateRecord(ctx context.Context, tableRef string, payload remote.Payload) (*remote.Record, error) {
	rec, err := r.store.CreateRecord(ctx, tableRef, payload)
	ev := TraceEvent{Op: OpCreateRecord, Ref: tableRef, Body: payloadBody(payload)}
	if err == nil {
		ev.Result = ir.IRObject{"id": ir.IRString(rec.ID)}
	}
	r.add(ev, err)
	return rec, err
}

// QueryRecords implements remote.Store.
func (r *Recorder) QueryRecords(ctx context.Context, tableRef string, req remote.QueryRequest) (*remote.QueryResponse, error) {
	resp, err := r.store.QueryRecords(ctx, tableRef, req)
	ev := TraceEvent{Op: OpQueryRecords, Ref: tableRef, Body: native.QueryIR(req)}
	if err == nil {
		ids := make(ir.IRArray, len(resp.Results))
		for i, rec := range resp.Results {
			ids[i] = ir.IRString(rec.ID)
		}
		ev.Result = ir.IRObject{"ids": ids, "has_more": ir.IRBool(resp.HasMore)}
	}
	r.add(ev, err)
	return resp, err
}

// PatchRecord implements remote.Store.
func (r *Recorder) PatchRecord(ctx context.Context, recordID string, payload remote.Payload) (*remote.Record, error) {
	rec, err := r.store.PatchRecord(ctx, recordID, payload)
	ev := TraceEvent{Op: OpPatchRecord, Ref: recordID, Body: payloadBody(payload)}
	if err == nil {
		ev.Result = ir.IRObject{"archived": ir.IRBool(rec.Archived)}
	}
	r.add(ev, err)
	return rec, err
}

func (r *Recorder) add(ev TraceEvent, err error) {
	if err != nil {
		ev.Error = errorCode(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.seq++
	ev.Seq = r.seq
	ev.Step = r.step
	r.trace = append(r.trace, ev)
}

// payloadBody renders a payload, falling back to an error marker for
// non-integral numbers, which the local store rejects anyway.
func payloadBody(p remote.Payload) ir.IRObject {
	body, err := native.PayloadIR(p)
	if err != nil {
		return ir.IRObject{"unrenderable": ir.IRString(err.Error())}
	}
	return body
}

func errorCode(err error) string {
	if re, ok := remote.AsError(err); ok {
		return re.Code
	}
	return "error"
}

func stringsIR(ss []string) ir.IRArray {
	out := make(ir.IRArray, len(ss))
	for i, s := range ss {
		out[i] = ir.IRString(s)
	}
	return out
}

var _ remote.Store = (*Recorder)(nil)
