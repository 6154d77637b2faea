package store

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/logging"
)

// KV 中的 key 布局（prefix 默认 "hybridrec"）：
//
//	<prefix>:current              → 当前版本号
//	<prefix>:<ver>:users          → 该版本写入的用户 ID（JSON 数组）
//	<prefix>:<ver>:user:<userID>  → 用户推荐列表（JSON，按分数降序）
//	<prefix>:<ver>:hot            → 有序集合，member=内容 ID，score=热度
type keyspace struct {
	prefix string
}

func (k keyspace) current() string { return k.prefix + ":current" }

func (k keyspace) users(ver string) string { return k.prefix + ":" + ver + ":users" }

func (k keyspace) user(ver string, userID int64) string {
	return k.prefix + ":" + ver + ":user:" + strconv.FormatInt(userID, 10)
}

func (k keyspace) hot(ver string) string { return k.prefix + ":" + ver + ":hot" }

// KVSink 把推荐结果写入 KeyValueStore，作为在线读缓存。
//
// 两阶段：Stage 把新版本的全部 key 写完，Commit 切换 current 指针；
// 旧版本在 Finish 时删除，Commit 之后 Rollback 会把指针指回旧版本。
type KVSink struct {
	store       core.KeyValueStore
	keys        keyspace
	concurrency int
	batch       int
	version     func() string
}

// NewKVSink 创建 KV sink；prefix 为空时使用 "hybridrec"。
func NewKVSink(store core.KeyValueStore, prefix string) *KVSink {
	if prefix == "" {
		prefix = "hybridrec"
	}
	return &KVSink{
		store:       store,
		keys:        keyspace{prefix: prefix},
		concurrency: 8,
		batch:       200,
		version: func() string {
			return strconv.FormatInt(time.Now().UnixNano(), 36)
		},
	}
}

// WithVersion 替换版本号生成函数。
func (s *KVSink) WithVersion(fn func() string) *KVSink {
	if fn != nil {
		s.version = fn
	}
	return s
}

func (s *KVSink) Name() string { return "kv." + s.store.Name() }

// Stage 实现 core.RecommendationSink。recs 需按用户分组且组内按分数降序（引擎输出顺序）。
func (s *KVSink) Stage(ctx context.Context, recs []core.Recommendation, catalog []core.ContentItem) (core.StagedWrite, error) {
	ver := "v" + s.version()
	users, lists := groupByUser(recs)
	if err := s.stage(ctx, ver, users, lists, catalog); err != nil {
		s.cleanup(ctx, ver, users)
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: stage kv version", err)
	}
	return &kvStaged{sink: s, ver: ver, users: users, rows: len(recs)}, nil
}

// Replace 依次执行 Stage、Commit、Finish，适合只有一个 sink 的场景。
func (s *KVSink) Replace(ctx context.Context, recs []core.Recommendation, catalog []core.ContentItem) error {
	return replace(ctx, s, recs, catalog)
}

type kvStaged struct {
	sink      *KVSink
	ver       string
	users     []int64
	rows      int
	previous  string
	committed bool
}

func (w *kvStaged) Commit(ctx context.Context) error {
	s := w.sink
	previous, err := s.store.Get(ctx, s.keys.current())
	if err != nil && !core.IsStoreNotFound(err) {
		return core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: read kv version pointer", err)
	}
	if err := s.store.Set(ctx, s.keys.current(), []byte(w.ver)); err != nil {
		return core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: swap kv version pointer", err)
	}
	w.previous = string(previous)
	w.committed = true
	logging.Ctx(ctx).Info().Str("sink", s.Name()).Str("version", w.ver).Int("users", len(w.users)).Int("rows", w.rows).Msg("kv version published")
	return nil
}

func (w *kvStaged) Rollback(ctx context.Context) error {
	s := w.sink
	ctx = context.WithoutCancel(ctx)
	if w.committed {
		var err error
		if w.previous != "" {
			err = s.store.Set(ctx, s.keys.current(), []byte(w.previous))
		} else {
			err = s.store.Delete(ctx, s.keys.current())
		}
		if err != nil {
			return core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "store: restore kv version pointer", err)
		}
		w.committed = false
		logging.Ctx(ctx).Warn().Str("sink", s.Name()).Str("version", w.previous).Msg("previous kv version restored")
	}
	return s.store.Delete(ctx, versionKeys(s.keys, w.ver, w.users)...)
}

// Finish 删除被替换的旧版本。
func (w *kvStaged) Finish(ctx context.Context) error {
	if w.previous == "" || w.previous == w.ver {
		return nil
	}
	return w.sink.dropVersion(ctx, w.previous)
}

func (s *KVSink) stage(ctx context.Context, ver string, users []int64, lists map[int64][]core.Recommendation, catalog []core.ContentItem) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for start := 0; start < len(users); start += s.batch {
		chunk := users[start:min(start+s.batch, len(users))]
		g.Go(func() error {
			kvs := make(map[string][]byte, len(chunk))
			for _, u := range chunk {
				data, err := json.Marshal(lists[u])
				if err != nil {
					return err
				}
				kvs[s.keys.user(ver, u)] = data
			}
			return s.store.BatchSet(gctx, kvs)
		})
	}

	for start := 0; start < len(catalog); start += s.batch {
		chunk := catalog[start:min(start+s.batch, len(catalog))]
		g.Go(func() error {
			for _, it := range chunk {
				member := strconv.FormatInt(it.ID, 10)
				if err := s.store.ZAdd(gctx, s.keys.hot(ver), it.Popularity, member); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	manifest, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, s.keys.users(ver), manifest)
}

// dropVersion 删除某个版本写入的全部 key。
func (s *KVSink) dropVersion(ctx context.Context, ver string) error {
	data, err := s.store.Get(ctx, s.keys.users(ver))
	if err != nil && !core.IsStoreNotFound(err) {
		return err
	}
	var users []int64
	if len(data) > 0 {
		if err := json.Unmarshal(data, &users); err != nil {
			return err
		}
	}
	return s.store.Delete(ctx, versionKeys(s.keys, ver, users)...)
}

// cleanup 尽力删除写了一半的版本，失败只记录日志。
func (s *KVSink) cleanup(ctx context.Context, ver string, users []int64) {
	if err := s.store.Delete(context.WithoutCancel(ctx), versionKeys(s.keys, ver, users)...); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("version", ver).Msg("failed to clean up staged kv version")
	}
}

func versionKeys(k keyspace, ver string, users []int64) []string {
	keys := make([]string, 0, len(users)+2)
	for _, u := range users {
		keys = append(keys, k.user(ver, u))
	}
	return append(keys, k.hot(ver), k.users(ver))
}

func groupByUser(recs []core.Recommendation) ([]int64, map[int64][]core.Recommendation) {
	var users []int64
	lists := make(map[int64][]core.Recommendation)
	for _, r := range recs {
		if _, ok := lists[r.UserID]; !ok {
			users = append(users, r.UserID)
		}
		lists[r.UserID] = append(lists[r.UserID], r)
	}
	return users, lists
}

var _ core.RecommendationSink = (*KVSink)(nil)
