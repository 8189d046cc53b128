package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"signscribe/internal/captions"
	"signscribe/internal/logging"
	"signscribe/internal/media"
	"signscribe/internal/services"
	"signscribe/internal/source"
)

type fakeCaptions struct {
	caption captions.Caption
	err     error
	calls   int
}

func (f *fakeCaptions) Fetch(_ context.Context, _ source.VideoID) (captions.Caption, error) {
	f.calls++
	return f.caption, f.err
}

type fakeAcquirer struct {
	dir      string
	err      error
	calls    int
	produced []string
}

func (f *fakeAcquirer) ExtractAudio(_ context.Context, src source.VideoSource) (*media.Audio, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.dir, "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		return nil, err
	}
	f.produced = append(f.produced, path)
	return &media.Audio{Path: path, Source: src}, nil
}

type fakeRecognizer struct {
	text  string
	err   error
	calls int
	paths []string
}

func (f *fakeRecognizer) Transcribe(_ context.Context, audioPath string) (string, error) {
	f.calls++
	f.paths = append(f.paths, audioPath)
	return f.text, f.err
}

type memoryCache struct {
	entries map[source.VideoID]Transcript
	getErr  error
	putErr  error
	puts    int
}

func (m *memoryCache) Get(_ context.Context, id source.VideoID) (Transcript, bool, error) {
	if m.getErr != nil {
		return Transcript{}, false, m.getErr
	}
	t, ok := m.entries[id]
	return t, ok, nil
}

func (m *memoryCache) Put(_ context.Context, id source.VideoID, t Transcript) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	if m.entries == nil {
		m.entries = map[source.VideoID]Transcript{}
	}
	m.entries[id] = t
	return nil
}

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

func assertReleased(t *testing.T, acq *fakeAcquirer) {
	t.Helper()
	for _, path := range acq.produced {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("audio artifact %s still present (stat err %v)", path, err)
		}
	}
}

func TestResolveRemoteUsesCaptions(t *testing.T) {
	capt := &fakeCaptions{caption: captions.Caption{Text: "From captions.", Language: "en"}}
	acq := &fakeAcquirer{dir: t.TempDir()}
	rec := &fakeRecognizer{text: "unused"}
	r := NewResolver(capt, acq, rec, logging.NewNop())

	got, err := r.Resolve(context.Background(), source.RemoteURL(videoURL))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Text != "From captions." || got.Provenance != ProvenanceCaption || got.Language != "en" {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if acq.calls != 0 || rec.calls != 0 {
		t.Fatalf("expected no recognition, acquirer=%d recognizer=%d", acq.calls, rec.calls)
	}
}

func TestResolveRemoteFallsBackWhenCaptionsUnavailable(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"no track", services.Wrap(services.ErrCaptionUnavailable, "captions", "select track", "", captions.ErrNoTrack)},
		{"service outage", services.Wrap(services.ErrCaptionUnavailable, "captions", "list tracks", "", errors.New("connection refused"))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			capt := &fakeCaptions{err: tc.err}
			acq := &fakeAcquirer{dir: t.TempDir()}
			rec := &fakeRecognizer{text: "Recognized."}
			r := NewResolver(capt, acq, rec, logging.NewNop())

			got, err := r.Resolve(context.Background(), source.RemoteURL(videoURL))
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.Provenance != ProvenanceSpeech || got.Text != "Recognized." {
				t.Fatalf("unexpected transcript %+v", got)
			}
			if capt.calls != 1 || acq.calls != 1 || rec.calls != 1 {
				t.Fatalf("calls captions=%d acquirer=%d recognizer=%d, want 1 each", capt.calls, acq.calls, rec.calls)
			}
			assertReleased(t, acq)
		})
	}
}

func TestResolveRecognitionFailureReleasesAudio(t *testing.T) {
	capt := &fakeCaptions{err: services.Wrap(services.ErrCaptionUnavailable, "captions", "", "", captions.ErrNoTrack)}
	acq := &fakeAcquirer{dir: t.TempDir()}
	rec := &fakeRecognizer{err: errors.New("model crashed")}
	r := NewResolver(capt, acq, rec, logging.NewNop())

	_, err := r.Resolve(context.Background(), source.RemoteURL(videoURL))
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
	if acq.calls != 1 || rec.calls != 1 {
		t.Fatalf("calls acquirer=%d recognizer=%d, want 1 each", acq.calls, rec.calls)
	}
	assertReleased(t, acq)
}

func TestResolveInvalidIdentifierMakesNoCalls(t *testing.T) {
	capt := &fakeCaptions{}
	acq := &fakeAcquirer{dir: t.TempDir()}
	rec := &fakeRecognizer{}
	cache := &memoryCache{}
	r := NewResolver(capt, acq, rec, logging.NewNop(), WithCache(cache))

	_, err := r.Resolve(context.Background(), source.RemoteURL("https://vimeo.com/12345"))
	if !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
	if capt.calls != 0 || acq.calls != 0 || rec.calls != 0 || cache.puts != 0 {
		t.Fatalf("expected zero calls, captions=%d acquirer=%d recognizer=%d cache=%d", capt.calls, acq.calls, rec.calls, cache.puts)
	}
}

func TestResolveLocalFileSkipsCaptions(t *testing.T) {
	capt := &fakeCaptions{caption: captions.Caption{Text: "should not be used"}}
	acq := &fakeAcquirer{dir: t.TempDir()}
	rec := &fakeRecognizer{text: ""}
	r := NewResolver(capt, acq, rec, logging.NewNop())

	got, err := r.Resolve(context.Background(), source.LocalFile("/tmp/upload.mp4"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Provenance != ProvenanceSpeech || got.Text != "" {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if capt.calls != 0 {
		t.Fatal("captions must not be consulted for local files")
	}
	assertReleased(t, acq)
}

func TestResolveAcquireErrorKeepsKind(t *testing.T) {
	acq := &fakeAcquirer{err: services.Wrap(services.ErrMedia, "media", "probe", "no audio", nil)}
	rec := &fakeRecognizer{}
	r := NewResolver(nil, acq, rec, logging.NewNop())

	_, err := r.Resolve(context.Background(), source.LocalFile("/tmp/upload.mp4"))
	if !errors.Is(err, services.ErrMedia) || errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrMedia only, got %v", err)
	}
	if rec.calls != 0 {
		t.Fatal("recognizer must not run after acquisition failure")
	}
}

func TestResolveWithoutCaptionFetcher(t *testing.T) {
	acq := &fakeAcquirer{dir: t.TempDir()}
	rec := &fakeRecognizer{text: "spoken"}
	r := NewResolver(nil, acq, rec, logging.NewNop())

	got, err := r.Resolve(context.Background(), source.RemoteURL(videoURL))
	if err != nil || got.Provenance != ProvenanceSpeech {
		t.Fatalf("unexpected result %+v, %v", got, err)
	}
}

func TestResolveCacheHitSkipsEverything(t *testing.T) {
	cache := &memoryCache{entries: map[source.VideoID]Transcript{
		"dQw4w9WgXcQ": {Text: "cached", Provenance: ProvenanceCaption},
	}}
	capt := &fakeCaptions{}
	acq := &fakeAcquirer{dir: t.TempDir()}
	rec := &fakeRecognizer{}
	r := NewResolver(capt, acq, rec, logging.NewNop(), WithCache(cache))

	got, err := r.Resolve(context.Background(), source.RemoteURL("https://youtu.be/dQw4w9WgXcQ"))
	if err != nil || got.Text != "cached" {
		t.Fatalf("unexpected result %+v, %v", got, err)
	}
	if capt.calls != 0 || acq.calls != 0 || rec.calls != 0 {
		t.Fatal("cache hit should skip captions and recognition")
	}
}

func TestResolvePopulatesCache(t *testing.T) {
	cache := &memoryCache{}
	capt := &fakeCaptions{caption: captions.Caption{Text: "fresh"}}
	r := NewResolver(capt, &fakeAcquirer{dir: t.TempDir()}, &fakeRecognizer{}, logging.NewNop(), WithCache(cache))

	if _, err := r.Resolve(context.Background(), source.RemoteURL(videoURL)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := cache.entries["dQw4w9WgXcQ"]; got.Text != "fresh" || got.Provenance != ProvenanceCaption {
		t.Fatalf("unexpected cached entry %+v", got)
	}
}

func TestResolveCacheErrorsNeverFail(t *testing.T) {
	cache := &memoryCache{getErr: errors.New("redis down"), putErr: errors.New("redis down")}
	capt := &fakeCaptions{caption: captions.Caption{Text: "ok"}}
	r := NewResolver(capt, &fakeAcquirer{dir: t.TempDir()}, &fakeRecognizer{}, logging.NewNop(), WithCache(cache))

	got, err := r.Resolve(context.Background(), source.RemoteURL(videoURL))
	if err != nil || got.Text != "ok" {
		t.Fatalf("unexpected result %+v, %v", got, err)
	}
	if cache.puts != 1 {
		t.Fatalf("expected one store attempt, got %d", cache.puts)
	}
}
