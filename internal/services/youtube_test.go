package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/google/go-cmp/cmp"
)

func newProxy(t *testing.T, handler http.HandlerFunc) *ProxyService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewProxyService(NewAPIService(server.URL, "", server.Client()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestProxyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Name", func(t *testing.T) {
		if svc := NewProxyService(nil); svc.Name() != "Proxy" {
			t.Errorf("expected name to be 'Proxy', got %s", svc.Name())
		}
	})

	t.Run("Resolve", func(t *testing.T) {
		t.Run("maps track metadata and forwards cache hint", func(t *testing.T) {
			svc := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/resolve" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("url") != "https://youtu.be/abc" || q.Get("cache") != "true" || q.Get("type") != "youtube" {
					t.Errorf("unexpected query %v", q)
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"videoId":          "abc",
					"title":            "Song",
					"duration_seconds": 215,
					"thumbnails": []map[string]any{
						{"url": "small.jpg", "width": 120},
						{"url": "large.jpg", "width": 480},
					},
				})
			})

			got, err := svc.Resolve(ctx, models.Ref{URL: "https://youtu.be/abc", Hint: "youtube"}, true)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			want := &models.BasicInfo{
				Title:         "Song",
				URL:           "https://www.youtube.com/watch?v=abc",
				ServiceID:     models.ServiceYouTube,
				LengthSeconds: 215,
				Thumbnail:     "large.jpg",
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})

		t.Run("unknown source is unresolvable", func(t *testing.T) {
			svc := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
			})
			if _, err := svc.Resolve(ctx, models.Ref{URL: "nope"}, false); !errors.Is(err, shared.ErrUnresolvableSource) {
				t.Errorf("expected ErrUnresolvableSource, got %v", err)
			}
		})

		t.Run("empty metadata is unresolvable", func(t *testing.T) {
			svc := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{})
			})
			if _, err := svc.Resolve(ctx, models.Ref{URL: "x"}, false); !errors.Is(err, shared.ErrUnresolvableSource) {
				t.Errorf("expected ErrUnresolvableSource, got %v", err)
			}
		})

		t.Run("empty url", func(t *testing.T) {
			if _, err := NewProxyService(nil).Resolve(ctx, models.Ref{}, false); !errors.Is(err, shared.ErrUnresolvableSource) {
				t.Errorf("expected ErrUnresolvableSource, got %v", err)
			}
		})

		t.Run("server error is not unresolvable", func(t *testing.T) {
			svc := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			})
			_, err := svc.Resolve(ctx, models.Ref{URL: "x"}, false)
			var apiErr *APIError
			if !errors.As(err, &apiErr) || errors.Is(err, shared.ErrUnresolvableSource) {
				t.Errorf("expected plain *APIError, got %v", err)
			}
		})
	})

	t.Run("Related", func(t *testing.T) {
		t.Run("returns first suggestion with known metadata", func(t *testing.T) {
			svc := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{
					"tracks": []map[string]any{
						{"videoId": "r1", "title": "Next"},
						{"videoId": "r2", "title": "Later"},
					},
				})
			})
			ref, err := svc.Related(ctx, "https://youtu.be/abc")
			if err != nil {
				t.Fatalf("Related() error = %v", err)
			}
			if ref.Known == nil || ref.Known.Title != "Next" || ref.URL != "https://www.youtube.com/watch?v=r1" {
				t.Errorf("unexpected ref %+v", ref)
			}
		})

		t.Run("no suggestions", func(t *testing.T) {
			svc := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"tracks": []any{}})
			})
			if _, err := svc.Related(ctx, "x"); !errors.Is(err, shared.ErrRelatedTrackNotFound) {
				t.Errorf("expected ErrRelatedTrackNotFound, got %v", err)
			}
		})
	})

	t.Run("Playable", func(t *testing.T) {
		svc := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"stream_url":     "https://cdn.example.com/a.webm",
				"content_length": 1500000,
				"mime_type":      "audio/webm",
			})
		})
		got, err := svc.Playable(ctx, "https://youtu.be/abc")
		if err != nil {
			t.Fatalf("Playable() error = %v", err)
		}
		want := &models.Playable{StreamURL: "https://cdn.example.com/a.webm", ContentLength: 1500000, MimeType: "audio/webm"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Playable() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Playlist keeps unreadable items as nil", func(t *testing.T) {
		svc := newProxy(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"id":    "PL1",
				"title": "Mix",
				"tracks": []any{
					map[string]any{"videoId": "a", "title": "A"},
					nil,
					map[string]any{"videoId": "b", "title": "B"},
				},
			})
		})
		pl, err := svc.Playlist(ctx, "https://youtube.com/playlist?list=PL1")
		if err != nil {
			t.Fatalf("Playlist() error = %v", err)
		}
		if pl.Title != "Mix" || len(pl.Tracks) != 3 || pl.Tracks[1] != nil {
			t.Errorf("unexpected playlist %+v", pl)
		}
	})
}
