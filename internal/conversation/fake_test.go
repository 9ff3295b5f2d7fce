// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/model"
)

// fakeBackend is an in-memory Backend. Hooks override the default
// behaviour per test.
type fakeBackend struct {
	mu    sync.Mutex
	posts []api.Post
	info  api.UserInfo

	listErr   error
	renameErr error
	deleteErr error

	onDelete func(id string)
	onStream func(api.GenerateRequest) (*api.Stream, error)
	onFast   func(api.FastRequest) (string, error)
	onImage  func(prompt string) (string, error)

	listCalls   int
	streamCalls int
	saved       map[string]string
	deleted     []string
	renamed     map[string]string
}

func newFakeBackend(posts ...api.Post) *fakeBackend {
	return &fakeBackend{
		posts:   posts,
		saved:   make(map[string]string),
		renamed: make(map[string]string),
	}
}

func post(id, title string, msgs ...model.Message) api.Post {
	payload, _ := model.EncodeMessages(msgs)
	raw, _ := json.Marshal(payload)
	return api.Post{ID: api.ID(id), Title: title, Messages: raw, CreatedAt: "2025-03-01T10:00:00"}
}

func (f *fakeBackend) ListPosts(context.Context) ([]api.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]api.Post, len(f.posts))
	copy(out, f.posts)
	return out, nil
}

func (f *fakeBackend) RenamePost(_ context.Context, id, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renamed[id] = title
	for i := range f.posts {
		if f.posts[i].ID.String() == id {
			f.posts[i].Title = title
		}
	}
	return nil
}

func (f *fakeBackend) SavePostMessages(_ context.Context, id, messages string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[id] = messages
	return nil
}

func (f *fakeBackend) DeletePost(_ context.Context, id string) error {
	if f.onDelete != nil {
		f.onDelete(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	kept := f.posts[:0]
	for _, p := range f.posts {
		if p.ID.String() != id {
			kept = append(kept, p)
		}
	}
	f.posts = kept
	return nil
}

func (f *fakeBackend) GenerateStream(_ context.Context, in api.GenerateRequest) (*api.Stream, error) {
	f.mu.Lock()
	f.streamCalls++
	hook := f.onStream
	f.mu.Unlock()
	if hook != nil {
		return hook(in)
	}
	return textStream("ok"), nil
}

func (f *fakeBackend) GenerateFast(_ context.Context, in api.FastRequest) (string, error) {
	if f.onFast != nil {
		return f.onFast(in)
	}
	return "fast reply", nil
}

func (f *fakeBackend) GenerateImage(_ context.Context, prompt string) (string, error) {
	if f.onImage != nil {
		return f.onImage(prompt)
	}
	return "https://cdn.example/img.png", nil
}

func (f *fakeBackend) Me(context.Context) (*api.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.info
	return &info, nil
}

func (f *fakeBackend) addPost(p api.Post) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append([]api.Post{p}, f.posts...)
}

func textStream(s string) *api.Stream {
	return &api.Stream{Body: io.NopCloser(strings.NewReader(s))}
}

// readerStream wraps an arbitrary reader.
func readerStream(r io.Reader) *api.Stream {
	return &api.Stream{Body: io.NopCloser(r)}
}

// memCache is an in-memory Cache.
type memCache struct {
	convs []*model.Conversation
}

func (c *memCache) Replace(convs []*model.Conversation) error {
	c.convs = convs
	return nil
}

func (c *memCache) List() ([]*model.Conversation, error) {
	out := make([]*model.Conversation, len(c.convs))
	for i, conv := range c.convs {
		out[i] = conv.Clone()
	}
	return out, nil
}
