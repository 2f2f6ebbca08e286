package harness

import (
	"errors"
	"fmt"
)

// HookError is a hook failure normalised to its message.
type HookError struct {
	Msg string
	Err error // set when the failure carried an error value
}

func (e *HookError) Error() string { return e.Msg }

func (e *HookError) Unwrap() error { return e.Err }

// callHook runs h and converts a returned error or a panic into a
// *HookError. A nil hook succeeds.
func callHook(h Hook, env *Env) (err error) {
	if h == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	if herr := h(env); herr != nil {
		return &HookError{Msg: herr.Error(), Err: herr}
	}
	return nil
}

// recovered turns a panic value into a HookError. Plain strings and error
// values are both accepted.
func recovered(r any) *HookError {
	switch v := r.(type) {
	case string:
		return &HookError{Msg: v}
	case error:
		return &HookError{Msg: v.Error(), Err: v}
	default:
		return &HookError{Msg: fmt.Sprint(v)}
	}
}

// Steps composes hooks into one that runs them in order and stops at the
// first failure.
func Steps(hooks ...Hook) Hook {
	if len(hooks) == 0 {
		return nil
	}
	return func(env *Env) error {
		for _, h := range hooks {
			if err := callHook(h, env); err != nil {
				return err
			}
		}
		return nil
	}
}

// Check adapts a path predicate (such as probe.Exists) to a Hook. The path
// is resolved with Env.Path.
func Check(pred func(string) error, path string) Hook {
	return func(env *Env) error {
		return pred(env.Path(path))
	}
}

// Fail returns a hook that always fails with msg.
func Fail(msg string) Hook {
	return func(*Env) error { return errors.New(msg) }
}
