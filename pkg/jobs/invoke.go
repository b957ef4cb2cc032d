package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cockroachdb/errors"
)

// Invoke runs fn under an optional timeout. A panic is turned into an error
// marked ErrJobPanicked, and an expired deadline into one marked
// ErrJobTimeout. A zero timeout leaves ctx untouched.
func Invoke(ctx context.Context, name string, fn Func, timeout time.Duration) (res *Result, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			err = errors.Mark(
				errors.WithDetail(errors.Newf("job %s panicked: %v", name, p), string(debug.Stack())),
				ErrJobPanicked,
			)
			res = nil
		}
	}()

	res, err = fn(ctx)
	if err == nil {
		return res, nil
	}

	if timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, errors.Mark(
			errors.Wrap(err, fmt.Sprintf("job %s exceeded %s", name, timeout)),
			ErrJobTimeout,
		)
	}
	return res, err
}
