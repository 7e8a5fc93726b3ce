package main

import (
	"errors"
	"fmt"

	gferrors "github.com/vnykmshr/taskflow/pkg/common/errors"
	"github.com/vnykmshr/taskflow/pkg/scheduling/workerpool"
)

var errDivideByZero = errors.New("division by zero")

// chain demonstrates continuation wiring and failure propagation.
func (a *app) chain() error {
	pool, err := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: a.cfg.Workers,
		Name:        "chain",
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}
	defer func() { <-pool.Shutdown() }()

	zero, err := workerpool.Submit(pool, func() (int, error) { return 0, nil })
	if err != nil {
		return err
	}
	plusThree, err := zero.Then(func(x int) (int, error) { return x + 3, nil })
	if err != nil {
		return err
	}
	timesThree, err := plusThree.Then(func(x int) (int, error) { return x * 3, nil })
	if err != nil {
		return err
	}

	v, err := timesThree.Get()
	if err != nil {
		return err
	}
	_, _ = bold.Fprint(a.out, "0 -> +3 -> *3 = ")
	_, _ = green.Fprintln(a.out, v)

	failing, err := workerpool.Submit(pool, func() (int, error) {
		return 0, errDivideByZero
	})
	if err != nil {
		return err
	}
	invoked := false
	next, err := workerpool.ThenApply(failing, func(x int) (int, error) {
		invoked = true
		return x + 5, nil
	})
	if err != nil {
		return err
	}

	_, err = next.Get()
	if !gferrors.IsExecutionError(err) || !errors.Is(err, errDivideByZero) || invoked {
		return fmt.Errorf("failure did not propagate: %v", err)
	}
	_, _ = bold.Fprint(a.out, "5/0 -> +5 = ")
	_, _ = red.Fprintln(a.out, err)
	return nil
}
