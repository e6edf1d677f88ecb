package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/client"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
)

// fakeStorage is an in-memory BlobStorage keyed by bucket/key.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
}

func (s *fakeStorage) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.put(bucket, key, data)
	return nil
}

func (s *fakeStorage) Download(ctx context.Context, bucket, key string, w io.Writer) (int64, error) {
	s.mu.Lock()
	data, ok := s.objects[bucket+"/"+key]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("object %s/%s not found", bucket, key)
	}
	n, err := io.Copy(w, bytes.NewReader(data))
	return n, err
}

func (s *fakeStorage) EnsureBucket(ctx context.Context, bucket string) error { return nil }

// fakePublisher records every published envelope.
type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

type publishedMessage struct {
	stage    model.Stage
	envelope model.JobEnvelope
}

func (p *fakePublisher) Publish(ctx context.Context, producedBy model.Stage, env *model.JobEnvelope) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, publishedMessage{stage: producedBy, envelope: *env})
	return nil
}

// fakeExtractor writes a non-empty audio file without running ffmpeg.
type fakeExtractor struct {
	err error
}

func (e *fakeExtractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if e.err != nil {
		return e.err
	}
	return os.WriteFile(audioPath, []byte("fake-audio"), 0o644)
}

// fakeTranscriber returns a fixed transcript.
type fakeTranscriber struct {
	result *client.TranscriptResult
	err    error
}

func (t *fakeTranscriber) TranscribeFile(ctx context.Context, path string) (*client.TranscriptResult, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.result, nil
}

// fakeProvider counts invocations and returns a canned analysis.
type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	result *model.AnalysisResult
	err    error
}

func (p *fakeProvider) Analyze(ctx context.Context, utterances []model.Utterance) (*model.AnalysisResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeCache is an in-memory AnalysisCache without expiry.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*model.AnalysisResult
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*model.AnalysisResult)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (*model.AnalysisResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[key]
	return result, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, result *model.AnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	return nil
}

// fakeStore is an in-memory SessionStore with upsert-replace semantics.
type fakeStore struct {
	mu   sync.Mutex
	docs map[string]*model.SessionDocument
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]*model.SessionDocument)}
}

func (s *fakeStore) Upsert(ctx context.Context, doc *model.SessionDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *doc
	s.docs[doc.JobID] = &copied
	return nil
}

func (s *fakeStore) Get(ctx context.Context, jobID string) (*model.SessionDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[jobID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return doc, nil
}

func (s *fakeStore) List(ctx context.Context) ([]model.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries := make([]model.SessionSummary, 0, len(s.docs))
	for _, doc := range s.docs {
		summaries = append(summaries, model.SessionSummary{
			JobID:       doc.JobID,
			DisplayName: doc.DisplayName,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *fakeStore) GetEmotionalProfile(ctx context.Context, jobID string) ([]model.PhaseEmotion, error) {
	doc, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return doc.EmotionalProfile, nil
}

func (s *fakeStore) GetInterventions(ctx context.Context, jobID string) ([]model.Intervention, error) {
	doc, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return doc.KeyInterventions, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func sampleAnalysis() *model.AnalysisResult {
	return &model.AnalysisResult{
		Roles: map[string]model.Role{
			"Speaker A": model.RoleTherapist,
			"Speaker B": model.RolePatient,
		},
		EmotionalProfile: []model.PhaseEmotion{
			{Phase: model.PhaseStart, Emotion: "Anxious"},
			{Phase: model.PhaseEarlyMid, Emotion: "Sad"},
			{Phase: model.PhaseLateMid, Emotion: "Neutral"},
			{Phase: model.PhaseEnd, Emotion: "Hopeful"},
		},
		KeyInterventions: []model.Intervention{
			{TriggerTopic: "Family", PatientReaction: model.ReactionNegative, Insight: "Defensive about father."},
			{TriggerTopic: "Work", PatientReaction: model.ReactionPositive, Insight: "Opened up about burnout."},
			{TriggerTopic: "Sleep", PatientReaction: model.ReactionPositive, Insight: "Accepted routine change."},
		},
		SentenceAnalysis: []model.SentenceAnalysis{
			{Speaker: "Speaker B", Text: "My mom makes me happy", Topic: "Family", Emotion: "Happy"},
		},
	}
}
