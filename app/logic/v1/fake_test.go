package v1

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/app/core/srv"
	"github.com/insightslm/insightslm/app/store"
	"github.com/insightslm/insightslm/pkg/realtime"
	"github.com/insightslm/insightslm/pkg/security"
	"github.com/insightslm/insightslm/pkg/types"
	"github.com/insightslm/insightslm/pkg/utils"
	"github.com/insightslm/insightslm/pkg/webhook"
)

func init() {
	utils.SetupIDWorker(1)
}

type memStore struct {
	mu        sync.Mutex
	notebooks map[string]types.Notebook
	sources   map[string]types.Source
	notes     map[string]types.Note
}

func newMemStore() *memStore {
	return &memStore{
		notebooks: map[string]types.Notebook{},
		sources:   map[string]types.Source{},
		notes:     map[string]types.Note{},
	}
}

func (s *memStore) Transaction(ctx context.Context, next func(ctx context.Context) error) error {
	return next(ctx)
}

func (s *memStore) NotebookStore() store.NotebookStore { return (*memNotebooks)(s) }
func (s *memStore) SourceStore() store.SourceStore     { return (*memSources)(s) }
func (s *memStore) NoteStore() store.NoteStore         { return (*memNotes)(s) }

func (s *memStore) notebook(id string) types.Notebook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notebooks[id]
}

func (s *memStore) source(id string) types.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[id]
}

func (s *memStore) sourceList() []types.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Values(s.sources)
}

type memNotebooks memStore

func (s *memNotebooks) Create(_ context.Context, data types.Notebook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notebooks[data.ID] = data
	return nil
}

func (s *memNotebooks) Get(_ context.Context, id string) (*types.Notebook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.notebooks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &nb, nil
}

func (s *memNotebooks) ListWithSourceCount(_ context.Context, userID string, _, _ uint64) ([]types.NotebookWithSourceCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []types.NotebookWithSourceCount
	for _, nb := range s.notebooks {
		if nb.UserID != userID {
			continue
		}
		count := lo.CountBy(lo.Values(s.sources), func(src types.Source) bool { return src.NotebookID == nb.ID })
		list = append(list, types.NotebookWithSourceCount{Notebook: nb, SourceCount: int64(count)})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt > list[j].UpdatedAt })
	return list, nil
}

func (s *memNotebooks) Update(_ context.Context, id string, title, description *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb := s.notebooks[id]
	if title != nil {
		nb.Title = *title
	}
	if description != nil {
		nb.Description = *description
	}
	s.notebooks[id] = nb
	return nil
}

func (s *memNotebooks) UpdateGenerationStatus(_ context.Context, id string, status types.GenerationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb := s.notebooks[id]
	nb.GenerationStatus = status
	s.notebooks[id] = nb
	return nil
}

func (s *memNotebooks) TryMarkGenerating(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.notebooks[id]
	if !ok || nb.GenerationStatus != types.GENERATION_STATUS_PENDING {
		return false, nil
	}
	nb.GenerationStatus = types.GENERATION_STATUS_GENERATING
	s.notebooks[id] = nb
	return true, nil
}

func (s *memNotebooks) SaveGeneratedContent(_ context.Context, id string, data types.NotebookGeneratedContent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb := s.notebooks[id]
	nb.Title = data.Title
	nb.Description = data.Description
	nb.Icon = data.Icon
	nb.Color = data.Color
	nb.ExampleQuestions = data.ExampleQuestions
	nb.GenerationStatus = types.GENERATION_STATUS_COMPLETED
	s.notebooks[id] = nb
	return nil
}

func (s *memNotebooks) UpdateAudio(_ context.Context, id string, data types.NotebookAudioUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb := s.notebooks[id]
	if data.URL != nil {
		nb.AudioOverviewURL = *data.URL
	}
	if data.ExpiresAt != nil {
		nb.AudioURLExpiresAt = *data.ExpiresAt
	}
	if data.Status != nil {
		nb.AudioOverviewGenerationStatus = *data.Status
	}
	s.notebooks[id] = nb
	return nil
}

func (s *memNotebooks) ListAudioExpiringBefore(_ context.Context, before int64, _ uint64) ([]types.Notebook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Filter(lo.Values(s.notebooks), func(nb types.Notebook, _ int) bool {
		return nb.AudioOverviewURL != "" && nb.AudioOverviewGenerationStatus == types.AUDIO_STATUS_COMPLETED && nb.AudioURLExpiresAt < before
	}), nil
}

func (s *memNotebooks) FailStaleGenerating(_ context.Context, before int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, nb := range s.notebooks {
		if nb.GenerationStatus == types.GENERATION_STATUS_GENERATING && nb.UpdatedAt < before {
			nb.GenerationStatus = types.GENERATION_STATUS_FAILED
			s.notebooks[id] = nb
			n++
		}
	}
	return n, nil
}

func (s *memNotebooks) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notebooks, id)
	for k, src := range s.sources {
		if src.NotebookID == id {
			delete(s.sources, k)
		}
	}
	for k, n := range s.notes {
		if n.NotebookID == id {
			delete(s.notes, k)
		}
	}
	return nil
}

type memSources memStore

func (s *memSources) Create(_ context.Context, data types.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[data.ID] = data
	return nil
}

func (s *memSources) Get(_ context.Context, id string) (*types.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &src, nil
}

func (s *memSources) ListByNotebook(_ context.Context, notebookID string) ([]types.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := lo.Filter(lo.Values(s.sources), func(src types.Source, _ int) bool { return src.NotebookID == notebookID })
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt > list[j].CreatedAt })
	return list, nil
}

func (s *memSources) FirstWithContent(_ context.Context, notebookID string) (*types.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range s.sources {
		if src.NotebookID == notebookID && src.Content != "" {
			return &src, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memSources) Count(_ context.Context, notebookID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(lo.CountBy(lo.Values(s.sources), func(src types.Source) bool { return src.NotebookID == notebookID })), nil
}

func (s *memSources) Update(_ context.Context, id string, data types.SourceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return sql.ErrNoRows
	}
	if data.Title != nil {
		src.Title = *data.Title
	}
	if data.Content != nil {
		src.Content = *data.Content
	}
	if data.Summary != nil {
		src.Summary = *data.Summary
	}
	if data.URL != nil {
		src.URL = *data.URL
	}
	if data.FilePath != nil {
		src.FilePath = *data.FilePath
	}
	if data.FileSize != nil {
		src.FileSize = *data.FileSize
	}
	if data.ProcessingStatus != nil {
		src.ProcessingStatus = *data.ProcessingStatus
	}
	s.sources[id] = src
	return nil
}

func (s *memSources) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
	return nil
}

type memNotes memStore

func (s *memNotes) Create(_ context.Context, data types.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[data.ID] = data
	return nil
}

func (s *memNotes) Get(_ context.Context, id string) (*types.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &n, nil
}

func (s *memNotes) ListByNotebook(_ context.Context, notebookID string) ([]types.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := lo.Filter(lo.Values(s.notes), func(n types.Note, _ int) bool { return n.NotebookID == notebookID })
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt > list[j].UpdatedAt })
	return list, nil
}

func (s *memNotes) Update(_ context.Context, id, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notes[id]
	n.Title = title
	n.Content = content
	s.notes[id] = n
	return nil
}

func (s *memNotes) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
	return nil
}

type memStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Upload(_ context.Context, fullPath string, body io.Reader, _ string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[fullPath] = raw
	return nil
}

func (s *memStorage) Delete(_ context.Context, fullPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, fullPath)
	return nil
}

func (s *memStorage) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			delete(s.objects, k)
		}
	}
	return nil
}

func (s *memStorage) PresignGet(_ context.Context, fullPath string, ttl time.Duration) (string, error) {
	return "https://storage.test/" + fullPath + "?ttl=" + ttl.String(), nil
}

func (s *memStorage) Download(_ context.Context, fullPath string) (*core.ObjectReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objects[fullPath]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &core.ObjectReader{File: bytes.Clone(raw)}, nil
}

func (s *memStorage) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

type fakePlugins struct {
	storage *memStorage
	cache   types.Cache
	broker  realtime.Broker
}

func (p *fakePlugins) Name() string                                 { return "fake" }
func (p *fakePlugins) Install(*core.Core) error                     { return nil }
func (p *fakePlugins) TryLock(context.Context, string) (bool, error) { return true, nil }
func (p *fakePlugins) UseLimiter(*gin.Context, string, string, ...core.LimitOption) core.Limiter {
	return nil
}
func (p *fakePlugins) FileStorage() core.FileStorage { return p.storage }
func (p *fakePlugins) Cache() types.Cache            { return p.cache }
func (p *fakePlugins) Broker() realtime.Broker       { return p.broker }

type fakeWebhook struct {
	mu         sync.Mutex
	configured map[string]bool

	content    *webhook.NotebookContent
	contentErr error
	sourcesErr error
	audioErr   error
	docErr     error

	contentCalls []webhook.NotebookContentRequest
	sourcesCalls []webhook.AdditionalSources
	audioCalls   []string
	docCalls     []webhook.DocumentRequest
}

func newFakeWebhook() *fakeWebhook {
	return &fakeWebhook{
		configured: map[string]bool{
			webhook.TargetNotebookGeneration: true,
			webhook.TargetAdditionalSources:  true,
			webhook.TargetAudioGeneration:    true,
			webhook.TargetDocumentProcessing: true,
		},
		content: &webhook.NotebookContent{Title: "Generated", Summary: "About things"},
	}
}

func (w *fakeWebhook) Configured(target string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.configured[target]
}

func (w *fakeWebhook) GenerateNotebookContent(_ context.Context, req webhook.NotebookContentRequest) (*webhook.NotebookContent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.contentCalls = append(w.contentCalls, req)
	return w.content, w.contentErr
}

func (w *fakeWebhook) ProcessAdditionalSources(_ context.Context, req webhook.AdditionalSources) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sourcesCalls = append(w.sourcesCalls, req)
	return `{"ok":true}`, w.sourcesErr
}

func (w *fakeWebhook) GenerateAudio(_ context.Context, notebookID, callbackURL string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.audioCalls = append(w.audioCalls, notebookID+" "+callbackURL)
	return w.audioErr
}

func (w *fakeWebhook) ProcessDocument(_ context.Context, req webhook.DocumentRequest) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docCalls = append(w.docCalls, req)
	return w.docErr
}

func (w *fakeWebhook) counts() (content, sources, audio, doc int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.contentCalls), len(w.sourcesCalls), len(w.audioCalls), len(w.docCalls)
}

type testEnv struct {
	core    *core.Core
	store   *memStore
	storage *memStorage
	webhook *fakeWebhook
	broker  *realtime.MemoryBroker
}

func newTestEnv(t *testing.T, opts ...srv.ApplyFunc) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, nil, opts...)
}

func newTestEnvWithConfig(t *testing.T, modify func(cfg *core.CoreConfig), opts ...srv.ApplyFunc) *testEnv {
	t.Helper()
	cfg, err := core.ParseConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Site.PublicBaseURL = "https://api.test"
	cfg.Ingest.StaggerMS = 1
	cfg.Ingest.MaxFileSizeMB = 1
	if modify != nil {
		modify(&cfg)
	}

	env := &testEnv{
		store:   newMemStore(),
		storage: newMemStorage(),
		webhook: newFakeWebhook(),
		broker:  realtime.NewMemoryBroker(),
	}
	opts = append([]srv.ApplyFunc{srv.ApplyWebhookClient(env.webhook), srv.ApplyHub(env.broker)}, opts...)
	env.core = core.NewCore(cfg,
		core.WithStore(env.store),
		core.WithPlugins(&fakePlugins{storage: env.storage, cache: core.NewMemoryCache(), broker: env.broker}),
		core.WithSrv(srv.SetupSrvs(opts...)),
	)
	return env
}

func userCtx(userID string) context.Context {
	return context.WithValue(context.Background(), TOKEN_CONTEXT_KEY, security.TokenClaims{
		User:       userID,
		ExpireTime: time.Now().Add(time.Hour).Unix(),
	})
}

func (e *testEnv) notebook(t *testing.T, userID string) types.Notebook {
	t.Helper()
	nb, err := NewNotebookLogic(userCtx(userID), e.core).Create(types.CreateNotebookRequest{Title: "Research"})
	if err != nil {
		t.Fatal(err)
	}
	return *nb
}

func (e *testEnv) addSource(src types.Source) types.Source {
	if src.ProcessingStatus == "" {
		src.ProcessingStatus = types.PROCESSING_STATUS_COMPLETED
	}
	src.CreatedAt = time.Now().UnixNano()
	e.store.mu.Lock()
	e.store.sources[src.ID] = src
	e.store.mu.Unlock()
	return src
}
