package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/and161185/rideshare/internal/api"
)

// fakeDoer answers by "METHOD path" with canned JSON and records every call.
type fakeDoer struct {
	mu    sync.Mutex
	resp  map[string]string
	errs  map[string]error
	calls []api.Request
}

var _ api.Doer = (*fakeDoer)(nil)

func newFakeDoer() *fakeDoer {
	return &fakeDoer{resp: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeDoer) on(method, path, body string) *fakeDoer {
	f.resp[method+" "+path] = body
	return f
}

func (f *fakeDoer) fail(method, path string, err error) *fakeDoer {
	f.errs[method+" "+path] = err
	return f
}

func (f *fakeDoer) Do(_ context.Context, req api.Request, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	key := req.Method + " " + req.Path
	err := f.errs[key]
	body, ok := f.resp[key]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if out == nil || !ok {
		return nil
	}
	if raw, isRaw := out.(*json.RawMessage); isRaw {
		*raw = json.RawMessage(body)
		return nil
	}
	return json.Unmarshal([]byte(body), out)
}

func (f *fakeDoer) last() api.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return api.Request{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeDoer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
