// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(&Config{BaseURL: server.URL, Timeout: 5 * time.Second}, StaticToken(token))
}

// =============================================================================
// REQUEST PLUMBING TESTS
// =============================================================================

func TestClient_SendsHeaders(t *testing.T) {
	var got http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"plan":"pro","credit_remaining":12}`))
	}, "tok-123")

	_, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", got.Get("Authorization"))
	assert.NotEmpty(t, got.Get(RequestIDHeader))
	assert.Contains(t, got.Get("User-Agent"), "scribe/")
}

func TestClient_RequiredAuthWithoutToken(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, "")

	_, err := client.ListPosts(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, int32(0), calls.Load(), "no request should be sent without a token")
}

func TestClient_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(&Config{BaseURL: url, Timeout: time.Second}, StaticToken("t"))
	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrTypeConnection, TypeOf(err))
}

func TestHandleErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		quota    bool
		wantType ErrorType
		wantMsg  string
	}{
		{"unauthorized", 401, `{"detail":"Invalid credentials"}`, false, ErrTypeUnauthorized, "Invalid credentials"},
		{"quota with message", 403, `{"error":"You have used all 10 credits"}`, true, ErrTypeQuotaExceeded, "You have used all 10 credits"},
		{"quota fallback", 403, ``, true, ErrTypeQuotaExceeded, DefaultQuotaMessage},
		{"plain forbidden", 403, `{"detail":"nope"}`, false, ErrTypeForbidden, "nope"},
		{"not found", 404, `{"detail":"Post not found"}`, false, ErrTypeNotFound, "Post not found"},
		{"validation list", 422, `{"detail":[{"msg":"field required"},{"msg":"bad email"}]}`, false, ErrTypeBadRequest, "field required; bad email"},
		{"message field", 400, `{"message":"Email already registered"}`, false, ErrTypeBadRequest, "Email already registered"},
		{"server", 502, `<html>`, false, ErrTypeServer, "bad gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleErrorResponse(tt.status, []byte(tt.body), tt.quota)
			assert.Equal(t, tt.wantType, TypeOf(err))
			assert.Equal(t, tt.wantMsg, Message(err))
		})
	}
}

// =============================================================================
// ACCOUNT TESTS
// =============================================================================

func TestLogin_TokenFieldVariants(t *testing.T) {
	for _, body := range []string{
		`{"access_token":"abc","token_type":"bearer"}`,
		`{"token":"abc"}`,
		`{"accessToken":"abc","name":"Sara"}`,
	} {
		t.Run(body, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/login", r.URL.Path)
				assert.Empty(t, r.Header.Get("Authorization"))
				var creds Credentials
				require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
				assert.Equal(t, "a@gmail.com", creds.Email)
				w.Write([]byte(body))
			}, "")

			resp, err := client.Login(context.Background(), Credentials{Email: "a@gmail.com", Password: "secret123"})
			require.NoError(t, err)
			assert.Equal(t, "abc", resp.BearerToken())
			assert.Equal(t, "a@gmail.com", resp.Email)
		})
	}
}

func TestLogin_NoToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	}, "")
	_, err := client.Login(context.Background(), Credentials{Email: "a@gmail.com", Password: "x"})
	assert.Equal(t, ErrTypeInvalidResponse, TypeOf(err))
}

func TestMe_Credits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"plan":"flexible","credit_remaining":null}`))
	}, "t")
	info, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.True(t, info.IsUnlimited())
	assert.Equal(t, Unlimited, info.CreditsLabel())

	n := 7.0
	assert.Equal(t, "7", (&UserInfo{CreditRemaining: &n}).CreditsLabel())
}

func TestPlans_FallbackWhenMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}, "")
	plans, err := client.Plans(context.Background())
	require.NoError(t, err)
	require.Contains(t, plans, "starter")
	assert.Equal(t, 500.0, *plans["starter"].Credits)
	assert.Nil(t, plans["flexible"].Credits)
}

// =============================================================================
// POST TESTS
// =============================================================================

func TestListPosts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`[
			{"id": 7, "title": "Tagline", "messages": "[{\"role\":\"user\",\"content\":\"hi\"}]", "created_at": "2025-03-01T10:00:00"},
			{"id": "abc", "title": "", "messages": [{"role":"assistant","content":"x"}], "created_at": "2025-03-01T10:00:00Z"}
		]`))
	}, "t")

	posts, err := client.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, ID("7"), posts[0].ID)
	assert.Equal(t, `[{"role":"user","content":"hi"}]`, posts[0].MessagesPayload())
	assert.Equal(t, 2025, posts[0].Created().Year())
	assert.Equal(t, ID("abc"), posts[1].ID)
	assert.Equal(t, `[{"role":"assistant","content":"x"}]`, posts[1].MessagesPayload())
}

func TestRenamePost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/posts/42", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"New name"}`, string(body))
		w.WriteHeader(http.StatusNoContent)
	}, "t")
	require.NoError(t, client.RenamePost(context.Background(), "42", "New name"))
}

func TestSavePostMessages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"messages":"[]"}`, string(body))
	}, "t")
	require.NoError(t, client.SavePostMessages(context.Background(), "42", "[]"))
}

func TestDeletePost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path != "/api/posts/9" {
			http.NotFound(w, r)
		}
	}, "t")
	require.NoError(t, client.DeletePost(context.Background(), "9"))

	err := client.DeletePost(context.Background(), "10")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = client.DeletePost(context.Background(), " ")
	assert.Equal(t, ErrTypeBadRequest, TypeOf(err))
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestGenerateStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "Write a tagline", in["prompt"])
		assert.Contains(t, in, "post_id")
		assert.Nil(t, in["post_id"])

		w.Header().Set(PostIDHeader, "55")
		flusher := w.(http.Flusher)
		for _, part := range []string{"Fresh ", "and ", "crunchy"} {
			w.Write([]byte(part))
			flusher.Flush()
		}
	}, "t")

	stream, err := client.GenerateStream(context.Background(), GenerateRequest{Prompt: "Write a tagline"})
	require.NoError(t, err)
	defer stream.Close()

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, "Fresh and crunchy", string(body))
	assert.Equal(t, "55", stream.PostID)
	assert.NotEmpty(t, stream.RequestID)
}

func TestGenerateStream_SendsPostID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.NotNil(t, in.PostID)
		assert.Equal(t, "12", *in.PostID)
	}, "t")
	id := "12"
	stream, err := client.GenerateStream(context.Background(), GenerateRequest{Prompt: "p", PostID: &id})
	require.NoError(t, err)
	stream.Close()
}

func TestGenerateStream_Quota(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"Free plan limit reached"}`))
	}, "t")

	stream, err := client.GenerateStream(context.Background(), GenerateRequest{Prompt: "p"})
	assert.Nil(t, stream)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	assert.Equal(t, "Free plan limit reached", Message(err))
}

func TestGenerateFast(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in FastRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in.Prompt == "fail" {
			w.Write([]byte(`{"error":"model overloaded"}`))
			return
		}
		w.Write([]byte(`{"output":"Done: ` + in.ChatName + `"}`))
	}, "")

	out, err := client.GenerateFast(context.Background(), FastRequest{Prompt: "p", ChatName: "Email"})
	require.NoError(t, err)
	assert.Equal(t, "Done: Email", out)

	_, err = client.GenerateFast(context.Background(), FastRequest{Prompt: "fail"})
	require.Error(t, err)
	assert.Equal(t, ErrTypeServer, TypeOf(err))
	assert.Equal(t, "model overloaded", Message(err))
}

func TestGenerateImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in ImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a jar of amlou", in.Prompt)
		w.Write([]byte(`{"imageUrl":"https://cdn/img.png"}`))
	}, "t")

	ref, err := client.GenerateImage(context.Background(), "a jar of amlou")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/img.png", ref)
}

func TestGenerateImage_EmptyReference(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, "t")
	_, err := client.GenerateImage(context.Background(), "x")
	assert.Equal(t, ErrTypeInvalidResponse, TypeOf(err))
}

func TestID_Unmarshal(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[1, "x", null, 12345678901]`), &ids))
	assert.Equal(t, []ID{"1", "x", "", "12345678901"}, ids)
}

func TestParseTime(t *testing.T) {
	assert.False(t, ParseTime("2025-01-02T03:04:05.123456").IsZero())
	assert.False(t, ParseTime("2025-01-02 03:04:05").IsZero())
	assert.True(t, ParseTime("yesterday").IsZero())
}
