package verify

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/koalaswap-seed/internal/logging"
)

type fakeExecer struct {
	tags   []pgconn.CommandTag
	errs   []error
	calls  int
	onExec func(calls int)
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	i := f.calls
	f.calls++
	if f.onExec != nil {
		f.onExec(f.calls)
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return pgconn.CommandTag{}, f.errs[i]
	}
	if i < len(f.tags) {
		return f.tags[i], nil
	}
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func testVerifier(db Execer) *Verifier {
	return New(db, logging.NewWithWriter("error", io.Discard))
}

func TestOnceReturnsRowsAffected(t *testing.T) {
	db := &fakeExecer{tags: []pgconn.CommandTag{pgconn.NewCommandTag("UPDATE 7")}}
	count, err := testVerifier(db).Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.Equal(t, 1, db.calls)
}

func TestOnceWrapsQueryError(t *testing.T) {
	db := &fakeExecer{errs: []error{errors.New("connection reset")}}
	_, err := testVerifier(db).Once(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify emails")
}

func TestWatchAccumulatesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	db := &fakeExecer{
		tags: []pgconn.CommandTag{
			pgconn.NewCommandTag("UPDATE 3"),
			pgconn.NewCommandTag("UPDATE 0"),
			pgconn.NewCommandTag("UPDATE 2"),
		},
	}
	db.onExec = func(calls int) {
		if calls == 3 {
			cancel()
		}
	}

	total, err := testVerifier(db).Watch(ctx, time.Millisecond, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, 3, db.calls)
}

func TestWatchKeepsGoingAfterQueryError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	db := &fakeExecer{
		tags: []pgconn.CommandTag{
			{},
			pgconn.NewCommandTag("UPDATE 4"),
		},
		errs: []error{errors.New("deadlock detected"), nil},
	}
	db.onExec = func(calls int) {
		if calls == 2 {
			cancel()
		}
	}

	total, err := testVerifier(db).Watch(ctx, time.Millisecond, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}
