package message

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/matchtalk/internal/match"
	"github.com/hitoshi/matchtalk/internal/model"
	"github.com/hitoshi/matchtalk/internal/repository/memory"
)

// recordingNotifier は通知呼び出しを記録するテスト用通知。
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	reads []int
}

func (n *recordingNotifier) NotifyMessage(_ context.Context, msg *model.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg.ID)
}

func (n *recordingNotifier) NotifyRead(_, _ string, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reads = append(n.reads, count)
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	matches  *match.Service
	notifier *recordingNotifier
	clock    time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	for _, id := range []string{"u1", "u2", "u3"} {
		store.AddUser(model.User{ID: id, Username: id})
	}
	matches := match.NewService(store.Matches(), nil)
	notifier := &recordingNotifier{}
	f := &fixture{store: store, matches: matches, notifier: notifier, clock: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	f.svc = NewService(store.Messages(), matches, notifier, nil, PageLimits{})
	// 呼び出しごとに1秒進む時計
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

func (f *fixture) matchUsers(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.Likes().Create(ctx, &model.Like{ID: a + b, LikerID: a, LikedID: b}))
	require.NoError(t, f.store.Likes().Create(ctx, &model.Like{ID: b + a, LikerID: b, LikedID: a}))
	matched, _, err := f.matches.Ensure(ctx, a, b)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestSend_RequiresMatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Send(ctx, "u1", "u2", "hi")
	require.Error(t, err)
	assert.Equal(t, model.KindNotMatched, model.KindOf(err))

	f.matchUsers(t, "u1", "u2")
	msg, err := f.svc.Send(ctx, "u1", "u2", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)
	assert.False(t, msg.IsRead)
	assert.Equal(t, []string{msg.ID}, f.notifier.sent)
}

func TestSend_Validation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.matchUsers(t, "u1", "u2")

	tests := []struct {
		name     string
		content  string
		wantKind model.ErrorKind
		wantCode string
	}{
		{"empty", "", model.KindValidation, model.ErrCodeEmptyMessage},
		{"whitespace only", "   \n\t", model.KindValidation, model.ErrCodeEmptyMessage},
		{"too long", strings.Repeat("あ", model.MaxMessageLength+1), model.KindValidation, model.ErrCodeMessageTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Send(ctx, "u1", "u2", tt.content)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, model.KindOf(err))
			apiErr, ok := err.(*model.APIError)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}

	msg, err := f.svc.Send(ctx, "u1", "u2", strings.Repeat("あ", model.MaxMessageLength))
	require.NoError(t, err)
	assert.Len(t, []rune(msg.Content), model.MaxMessageLength)
}

func TestSend_StoresContentAsSent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.matchUsers(t, "u1", "u2")

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"comparison operators", "if a<b and c>d then", "if a<b and c>d then"},
		{"angle-bracketed word", "x <y> z", "x <y> z"},
		{"talking about tags", "use <br> tags", "use <br> tags"},
		{"markup only", "<b></b>", "<b></b>"},
		{"ampersand", "  tom & jerry \n", "tom & jerry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := f.svc.Send(ctx, "u1", "u2", tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Content)

			thread, err := f.svc.FetchThread(ctx, "u2", "u1", Page{Limit: 1})
			require.NoError(t, err)
			require.Len(t, thread, 1)
			assert.Equal(t, tt.want, thread[0].Content)
		})
	}
}

func TestSend_ValidatesContentBeforeMatch(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Send(ctx, "u1", "u2", "   ")
	require.Error(t, err)
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	_, err = f.svc.Send(ctx, "u1", "u2", strings.Repeat("a", model.MaxMessageLength+1))
	require.Error(t, err)
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	// 本文が正しければマッチ確認で拒否される
	_, err = f.svc.Send(ctx, "u1", "u2", "hi")
	require.Error(t, err)
	assert.Equal(t, model.KindNotMatched, model.KindOf(err))
}

func TestSend_SelfReference(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Send(context.Background(), "u1", "u1", "hi")
	require.Error(t, err)
	assert.Equal(t, model.KindSelfReference, model.KindOf(err))
}

func TestFetchThread_ChronologicalAndMarksRead(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.matchUsers(t, "u1", "u2")

	for _, step := range []struct{ from, to, content string }{
		{"u1", "u2", "one"},
		{"u2", "u1", "two"},
		{"u2", "u1", "three"},
		{"u1", "u2", "four"},
	} {
		_, err := f.svc.Send(ctx, step.from, step.to, step.content)
		require.NoError(t, err)
	}

	thread, err := f.svc.FetchThread(ctx, "u1", "u2", Page{Limit: 50})
	require.NoError(t, err)
	require.Len(t, thread, 4)
	var contents []string
	for _, m := range thread {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"one", "two", "three", "four"}, contents)
	// 返却値は既読化前の状態
	assert.False(t, thread[1].IsRead)
	assert.Equal(t, []int{2}, f.notifier.reads)

	unread, err := f.store.Messages().CountUnreadBySender(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread["u2"])
	// u1が送ったメッセージはu1の取得では既読にならない
	unread, err = f.store.Messages().CountUnreadBySender(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, unread["u1"])

	// 2回目の取得では既読化は発生しない
	_, err = f.svc.FetchThread(ctx, "u1", "u2", Page{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, f.notifier.reads)
}

func TestFetchThread_PaginatesOverNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.matchUsers(t, "u1", "u2")

	for _, c := range []string{"m1", "m2", "m3", "m4", "m5"} {
		_, err := f.svc.Send(ctx, "u2", "u1", c)
		require.NoError(t, err)
	}

	page, err := f.svc.FetchThread(ctx, "u1", "u2", Page{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m3", page[0].Content)
	assert.Equal(t, "m4", page[1].Content)

	// ページ外の未読も既読になる
	unread, err := f.store.Messages().CountUnreadBySender(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, unread["u2"])
}

func TestFetchThread_RequiresMatch(t *testing.T) {
	f := setup(t)

	_, err := f.svc.FetchThread(context.Background(), "u1", "u3", Page{Limit: 10})
	require.Error(t, err)
	assert.Equal(t, model.KindNotMatched, model.KindOf(err))
}

func TestMarkRead_WorksAfterMatchDissolved(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.matchUsers(t, "u1", "u2")

	_, err := f.svc.Send(ctx, "u2", "u1", "before")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, "u2", "u1", "unmatch")
	require.NoError(t, err)
	_, err = f.matches.Dissolve(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, "u2", "u1", "after")
	assert.Equal(t, model.KindNotMatched, model.KindOf(err))

	count, err := f.svc.MarkRead(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = f.svc.MarkRead(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Zero(t, count)
}
