// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSuccess(t *testing.T) {
	var gotReq ChatRequest
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotKey = r.Header.Get("X-API-KEY")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Hi there"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-secret")
	content, err := c.Complete(context.Background(), &ChatRequest{
		Model:            DefaultModel,
		Messages:         []Message{{Role: "user", Content: "Hello"}},
		MaxTokens:        1024,
		Temperature:      0.0,
		FrequencyPenalty: 1.0,
	})

	require.NoError(t, err)
	assert.Equal(t, "Hi there", content)
	assert.Equal(t, "dev-secret", gotKey)
	assert.Equal(t, DefaultModel, gotReq.Model)
	assert.Len(t, gotReq.Messages, 1)
	assert.Equal(t, 1024, gotReq.MaxTokens)
}

func TestCompleteNotConfigured(t *testing.T) {
	c := NewClient("", "")
	_, err := c.Complete(context.Background(), &ChatRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCompleteErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "model backend offline"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-secret")
	_, err := c.Complete(context.Background(), &ChatRequest{Model: DefaultModel})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "model backend offline", apiErr.Message)
}

func TestCompleteErrorFieldWith200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}, "error": "quota exceeded"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-secret")
	_, err := c.Complete(context.Background(), &ChatRequest{Model: DefaultModel})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "quota exceeded", apiErr.Message)
}

func TestCompleteEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": ""}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-secret")
	_, err := c.Complete(context.Background(), &ChatRequest{Model: DefaultModel})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleteMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-secret")
	_, err := c.Complete(context.Background(), &ChatRequest{Model: DefaultModel})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		// Discovery requires no credential
		assert.Empty(t, r.Header.Get("X-API-KEY"))
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"id": "mistral-7b-instruct", "name": "Mistral 7B Instruct"},
				{"id": "llama-3-8b"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-secret")
	models, err := c.ListModels(context.Background())

	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "mistral-7b-instruct", models[0].ID)
	assert.Equal(t, "Mistral 7B Instruct", models[0].Name)
}

func TestHealth(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dev-secret")
	assert.NoError(t, c.Health(context.Background()))

	healthy = false
	assert.Error(t, c.Health(context.Background()))
}
