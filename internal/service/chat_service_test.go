package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"chatbot-go/internal/config"
	"chatbot-go/internal/model"
	"chatbot-go/internal/pipeline"
	"chatbot-go/internal/repository"
	"chatbot-go/pkg/llm"
	"chatbot-go/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	m.Run()
}

// fakeHistoryRepo 是 HistoryRepository 的内存实现。
type fakeHistoryRepo struct {
	mu          sync.Mutex
	turns       []model.ChatTurn
	seq         uint
	latestCalls int
}

var _ repository.HistoryRepository = (*fakeHistoryRepo)(nil)

func (f *fakeHistoryRepo) Insert(_ context.Context, turn *model.ChatTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	turn.ID = f.seq
	f.turns = append(f.turns, *turn)
	return nil
}

func (f *fakeHistoryRepo) LatestByNormalized(_ context.Context, sessionID, normalized string) (*model.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestCalls++
	for i := len(f.turns) - 1; i >= 0; i-- {
		if f.turns[i].SessionID == sessionID && f.turns[i].NormalizedInput == normalized {
			t := f.turns[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeHistoryRepo) ListBySession(_ context.Context, sessionID string) ([]model.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChatTurn
	for _, t := range f.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) FindMissingTimestamp(_ context.Context) ([]model.ChatTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChatTurn
	for _, t := range f.turns {
		if t.Timestamp == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) SetTimestamp(_ context.Context, id uint, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.turns {
		if f.turns[i].ID == id {
			f.turns[i].Timestamp = &ts
		}
	}
	return nil
}

// fakeLLM 是生成后端的桩实现，记录调用次数。
type fakeLLM struct {
	reply string
	err   error
	calls int
	fail  func(t *testing.T) // 设置后一旦被调用即失败
	t     *testing.T
}

func (f *fakeLLM) ChatMessages(_ context.Context, _ []llm.Message, _ *llm.GenerationParams) (string, error) {
	f.calls++
	if f.fail != nil {
		f.fail(f.t)
	}
	return f.reply, f.err
}

// fakeFacts 是百科查询的桩实现。
type fakeFacts struct {
	summary     string
	countryFact string
	err         error
	calls       int
}

func (f *fakeFacts) Summary(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.summary, f.err
}

func (f *fakeFacts) CountryFact(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.countryFact, f.err
}

// fakeAnswerCache 是 AnswerCacheRepository 的内存实现。
type fakeAnswerCache struct {
	data   map[string]string
	getErr error
	gets   int
	sets   int
}

var _ repository.AnswerCacheRepository = (*fakeAnswerCache)(nil)

func cacheKey(sessionID, normalized string) string { return sessionID + "|" + normalized }

func (f *fakeAnswerCache) Get(_ context.Context, sessionID, normalized string) (string, bool, error) {
	f.gets++
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.data[cacheKey(sessionID, normalized)]
	return v, ok, nil
}

func (f *fakeAnswerCache) Set(_ context.Context, sessionID, normalized, response string) error {
	f.sets++
	if f.data == nil {
		f.data = make(map[string]string)
	}
	f.data[cacheKey(sessionID, normalized)] = response
	return nil
}

type fakeDetector struct{ code string }

func (f *fakeDetector) Detect(string) string { return f.code }

func newTestService(t *testing.T, repo *fakeHistoryRepo, backend *fakeLLM, facts *fakeFacts) ChatService {
	t.Helper()
	backend.t = t
	return NewChatService(
		config.LLMConfig{},
		nil,
		repo,
		nil,
		backend,
		facts,
		pipeline.NewInterceptor(),
		&fakeDetector{code: "en"},
	)
}

// 拦截命中时，后端和历史存储都不得被触碰，且不写任何行。
func TestRespondIntercepted(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{fail: func(t *testing.T) { t.Fatal("后端不应被调用") }}
	svc := newTestService(t, repo, backend, &fakeFacts{})

	ans, err := svc.Respond(context.Background(), "s1", "What time is it?")
	require.NoError(t, err)
	assert.Equal(t, "interceptor", ans.Source)
	assert.Regexp(t, regexp.MustCompile(`\d{2}:\d{2}(:\d{2})?`), ans.Text)
	assert.Empty(t, repo.turns)
}

// 空库 + 后端返回 "Hi!"：回答为 "Hi!"，且恰好落库一行，键为 "hello"。
func TestRespondGeneratedAndPersisted(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{reply: "Hi!"}
	svc := newTestService(t, repo, backend, &fakeFacts{})

	ans, err := svc.Respond(context.Background(), "s1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", ans.Text)
	assert.Equal(t, "llm", ans.Source)
	require.Len(t, repo.turns, 1)
	assert.Equal(t, "hello", repo.turns[0].NormalizedInput)
	assert.Equal(t, "Hello", repo.turns[0].UserInput)
	assert.Equal(t, "en", repo.turns[0].Language)
	require.NotNil(t, repo.turns[0].Timestamp)
}

// 往返：同一会话内重复（归一化后相同的）问题必须命中缓存，不再调用后端。
func TestRespondCacheRoundTrip(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{reply: "Hi!"}
	svc := newTestService(t, repo, backend, &fakeFacts{})
	ctx := context.Background()

	_, err := svc.Respond(ctx, "s1", "Hello")
	require.NoError(t, err)

	ans, err := svc.Respond(ctx, "s1", "HELLO!!!")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", ans.Text)
	assert.Equal(t, "cache", ans.Source)
	assert.Equal(t, 1, backend.calls)
	// 缓存命中不重复落库
	assert.Len(t, repo.turns, 1)
}

// 缓存按会话隔离：另一个会话问同样的问题要重新生成。
func TestRespondCacheIsSessionScoped(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{reply: "Hi!"}
	svc := newTestService(t, repo, backend, &fakeFacts{})
	ctx := context.Background()

	_, err := svc.Respond(ctx, "s1", "Hello")
	require.NoError(t, err)
	_, err = svc.Respond(ctx, "s2", "Hello")
	require.NoError(t, err)

	assert.Equal(t, 2, backend.calls)
	assert.Len(t, repo.turns, 2)
}

func newTestServiceWithCache(t *testing.T, repo *fakeHistoryRepo, cache *fakeAnswerCache, backend *fakeLLM) ChatService {
	t.Helper()
	backend.t = t
	return NewChatService(
		config.LLMConfig{},
		nil,
		repo,
		cache,
		backend,
		&fakeFacts{},
		pipeline.NewInterceptor(),
		&fakeDetector{code: "en"},
	)
}

// Redis 前置缓存命中时直接复述，不碰 SQL 也不碰后端。
func TestRespondRedisCacheHit(t *testing.T) {
	repo := &fakeHistoryRepo{}
	cache := &fakeAnswerCache{data: map[string]string{cacheKey("s1", "hello"): "Hi!"}}
	backend := &fakeLLM{fail: func(t *testing.T) { t.Fatal("缓存命中不应调用后端") }}
	svc := newTestServiceWithCache(t, repo, cache, backend)

	ans, err := svc.Respond(context.Background(), "s1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", ans.Text)
	assert.Equal(t, "cache", ans.Source)
	assert.Equal(t, 0, repo.latestCalls)
	assert.Empty(t, repo.turns)
}

// Redis 查询出错只降级为 SQL 查询，SQL 命中照常复述并回填前置缓存。
func TestRespondRedisCacheGetErrorFallsThroughToSQL(t *testing.T) {
	repo := &fakeHistoryRepo{}
	ts := time.Now()
	require.NoError(t, repo.Insert(context.Background(), &model.ChatTurn{
		SessionID: "s1", UserInput: "Hello", NormalizedInput: "hello",
		BotResponse: "Hi!", Timestamp: &ts,
	}))
	cache := &fakeAnswerCache{getErr: errors.New("redis down")}
	backend := &fakeLLM{fail: func(t *testing.T) { t.Fatal("SQL 命中不应调用后端") }}
	svc := newTestServiceWithCache(t, repo, cache, backend)

	ans, err := svc.Respond(context.Background(), "s1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", ans.Text)
	assert.Equal(t, "cache", ans.Source)
	assert.Equal(t, 1, repo.latestCalls)
	// SQL 命中后尝试回填前置缓存
	assert.Equal(t, 1, cache.sets)
}

// 新落库的回答同步写穿到 Redis；重复提问由前置缓存直接供答。
func TestRespondRedisCacheWriteThrough(t *testing.T) {
	repo := &fakeHistoryRepo{}
	cache := &fakeAnswerCache{}
	backend := &fakeLLM{reply: "Hi!"}
	svc := newTestServiceWithCache(t, repo, cache, backend)
	ctx := context.Background()

	_, err := svc.Respond(ctx, "s1", "Hello")
	require.NoError(t, err)
	require.Len(t, repo.turns, 1)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, "Hi!", cache.data[cacheKey("s1", "hello")])

	latestBefore := repo.latestCalls
	ans, err := svc.Respond(ctx, "s1", "HELLO!!!")
	require.NoError(t, err)
	assert.Equal(t, "Hi!", ans.Text)
	assert.Equal(t, "cache", ans.Source)
	assert.Equal(t, 1, backend.calls)
	// 第二问被前置缓存接住，SQL 不再参与
	assert.Equal(t, latestBefore, repo.latestCalls)
}

// 配额类错误输出原样返回给调用方，但绝不落库。
func TestRespondQuotaErrorNotPersisted(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{reply: "Error: you exceeded your quota"}
	svc := newTestService(t, repo, backend, &fakeFacts{})

	ans, err := svc.Respond(context.Background(), "s1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Error: you exceeded your quota", ans.Text)
	assert.Empty(t, repo.turns)
}

// 后端调用失败转成道歉文本，请求不失败，也不落库。
func TestRespondBackendFailure(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{err: errors.New("connection refused")}
	svc := newTestService(t, repo, backend, &fakeFacts{})

	ans, err := svc.Respond(context.Background(), "s1", "Hello")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "connection refused")
	assert.Empty(t, repo.turns)
}

// 形似日期/时间应答的后端输出照常返回，但不允许进入缓存。
func TestRespondDatetimeLookalikeNotPersisted(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{reply: "Right now it is 14:30:05 where I am."}
	svc := newTestService(t, repo, backend, &fakeFacts{})

	ans, err := svc.Respond(context.Background(), "s1", "Hello")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "14:30:05")
	assert.Empty(t, repo.turns)
}

// 输出复读输入时换成固定答复，不落库。
func TestRespondEchoGuard(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{reply: "hello"}
	svc := newTestService(t, repo, backend, &fakeFacts{})

	ans, err := svc.Respond(context.Background(), "s1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "I'm still learning! Can you ask me in a different way?", ans.Text)
	assert.Empty(t, repo.turns)
}

// 事实类关键词路由到百科查询而非生成后端。
func TestRespondFactualKeywordRouting(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{fail: func(t *testing.T) { t.Fatal("事实类问题不应调用生成后端") }}
	facts := &fakeFacts{countryFact: "The capital of France is Paris."}
	svc := newTestService(t, repo, backend, facts)

	ans, err := svc.Respond(context.Background(), "s1", "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "wiki", ans.Source)
	assert.Equal(t, "The capital of France is Paris.", ans.Text)
	assert.Equal(t, 1, facts.calls)
	assert.Len(t, repo.turns, 1)
}

// 百科查询失败降级为 "couldn't find" 文案，不落库。
func TestRespondFactualLookupFailure(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{}
	facts := &fakeFacts{err: errors.New("upstream down")}
	svc := newTestService(t, repo, backend, facts)

	ans, err := svc.Respond(context.Background(), "s1", "define serendipity")
	require.NoError(t, err)
	assert.Equal(t, "I couldn't find an answer. Try asking differently!", ans.Text)
	assert.Empty(t, repo.turns)
}

// 结构化载荷：language+text 被解析，语言随行持久化。
func TestRespondStructuredReply(t *testing.T) {
	repo := &fakeHistoryRepo{}
	backend := &fakeLLM{reply: `{"language": "sv", "text": "Hej!"}`, t: t}
	svc := NewChatService(
		config.LLMConfig{Structured: true},
		nil, repo, nil, backend, &fakeFacts{},
		pipeline.NewInterceptor(), &fakeDetector{code: "sv"},
	)

	ans, err := svc.Respond(context.Background(), "s1", "Hej hej, hur mår du")
	require.NoError(t, err)
	assert.Equal(t, "Hej!", ans.Text)
	assert.Equal(t, "sv", ans.Language)
	require.Len(t, repo.turns, 1)
	assert.Equal(t, "sv", repo.turns[0].Language)
}
